// Package permissions decides whether an identity may perform an operation.
//
// Roles map to capability sets through an explicit table, and every endpoint
// and verb maps to the capabilities it requires. Nothing here holds state
// between calls.
package permissions

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

// Role is a group a user belongs to.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleFieldOfficer Role = "FieldOfficer"
	RoleDonor        Role = "Donor"
)

// Resource is an entity collection or other protected surface.
type Resource string

const (
	ResourceBeneficiaries Resource = "beneficiaries"
	ResourceFunds         Resource = "funds"
	ResourceTransactions  Resource = "transactions"
	ResourceSync          Resource = "sync"
	ResourceSyncAudit     Resource = "sync_audit"
)

// Capability is a named permission on a resource.
type Capability string

const (
	ReadBeneficiaries  Capability = "beneficiaries:read"
	WriteBeneficiaries Capability = "beneficiaries:write"
	ReadFunds          Capability = "funds:read"
	WriteFunds         Capability = "funds:write"
	ReadTransactions   Capability = "transactions:read"
	WriteTransactions  Capability = "transactions:write"
	WriteSync          Capability = "sync:write"
	ReadSyncAudit      Capability = "sync_audit:read"
)

var grants = map[Role][]Capability{
	RoleAdmin: {
		ReadBeneficiaries, WriteBeneficiaries,
		ReadFunds, WriteFunds,
		ReadTransactions, WriteTransactions,
		WriteSync, ReadSyncAudit,
	},
	RoleFieldOfficer: {
		ReadBeneficiaries, WriteBeneficiaries,
		ReadFunds, WriteFunds,
		ReadTransactions, WriteTransactions,
		WriteSync,
	},
	RoleDonor: {
		ReadBeneficiaries,
		ReadFunds,
		ReadTransactions,
	},
}

type access struct {
	read, write Capability
}

var resources = map[Resource]access{
	ResourceBeneficiaries: {read: ReadBeneficiaries, write: WriteBeneficiaries},
	ResourceFunds:         {read: ReadFunds, write: WriteFunds},
	ResourceTransactions:  {read: ReadTransactions, write: WriteTransactions},
	ResourceSync:          {write: WriteSync},
	ResourceSyncAudit:     {read: ReadSyncAudit},
}

// Identity is an authenticated caller and the roles it holds.
type Identity struct {
	UserID int64
	Roles  []Role
}

// Grants returns the capabilities held by role. Unknown roles hold none.
func Grants(role Role) []Capability {
	return append([]Capability(nil), grants[role]...)
}

// IsSafeMethod reports whether verb never mutates state.
func IsSafeMethod(verb string) bool {
	switch verb {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RequiredCapabilities returns the capabilities a caller must hold to use
// verb on resource. An empty result means the operation is not permitted to
// anyone.
func RequiredCapabilities(resource Resource, verb string) []Capability {
	acc, ok := resources[resource]
	if !ok {
		return nil
	}
	needed := acc.write
	if IsSafeMethod(verb) {
		needed = acc.read
	}
	if needed == "" {
		return nil
	}
	return []Capability{needed}
}

// Evaluate allows or denies one operation. A nil identity is rejected before
// its roles are considered.
func Evaluate(id *Identity, resource Resource, verb string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if len(id.Roles) == 0 {
		return ErrForbidden
	}

	required := RequiredCapabilities(resource, verb)
	if len(required) == 0 {
		return ErrForbidden
	}

	held := make(map[Capability]bool)
	for _, role := range id.Roles {
		for _, c := range grants[role] {
			held[c] = true
		}
	}
	for _, c := range required {
		if !held[c] {
			return ErrForbidden
		}
	}
	return nil
}

// ParseRoles keeps the known roles among group names.
func ParseRoles(groups []string) []Role {
	var roles []Role
	for _, g := range groups {
		role := Role(g)
		if _, ok := grants[role]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}
