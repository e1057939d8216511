package permissions

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var entityResources = []Resource{ResourceBeneficiaries, ResourceFunds, ResourceTransactions}

func TestEvaluateByRole(t *testing.T) {
	mutating := []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

	for _, resource := range entityResources {
		for _, role := range []Role{RoleAdmin, RoleFieldOfficer} {
			id := &Identity{UserID: 1, Roles: []Role{role}}
			assert.NoError(t, Evaluate(id, resource, http.MethodGet), "%s GET %s", role, resource)
			for _, verb := range mutating {
				assert.NoError(t, Evaluate(id, resource, verb), "%s %s %s", role, verb, resource)
			}
		}

		donor := &Identity{UserID: 2, Roles: []Role{RoleDonor}}
		assert.NoError(t, Evaluate(donor, resource, http.MethodGet))
		assert.NoError(t, Evaluate(donor, resource, http.MethodHead))
		for _, verb := range mutating {
			assert.ErrorIs(t, Evaluate(donor, resource, verb), ErrForbidden, "donor %s %s", verb, resource)
		}
	}
}

func TestEvaluateSync(t *testing.T) {
	assert.NoError(t, Evaluate(&Identity{Roles: []Role{RoleFieldOfficer}}, ResourceSync, http.MethodPost))
	assert.ErrorIs(t, Evaluate(&Identity{Roles: []Role{RoleDonor}}, ResourceSync, http.MethodPost), ErrForbidden)
	assert.ErrorIs(t, Evaluate(&Identity{Roles: []Role{RoleAdmin}}, ResourceSync, http.MethodGet), ErrForbidden)
}

func TestEvaluateSyncAuditIsAdminOnly(t *testing.T) {
	assert.NoError(t, Evaluate(&Identity{Roles: []Role{RoleAdmin}}, ResourceSyncAudit, http.MethodGet))
	assert.ErrorIs(t, Evaluate(&Identity{Roles: []Role{RoleFieldOfficer}}, ResourceSyncAudit, http.MethodGet), ErrForbidden)
}

func TestEvaluateWithoutIdentityOrRoles(t *testing.T) {
	assert.ErrorIs(t, Evaluate(nil, ResourceFunds, http.MethodGet), ErrUnauthenticated)
	assert.ErrorIs(t, Evaluate(&Identity{UserID: 3}, ResourceFunds, http.MethodGet), ErrForbidden)
	assert.ErrorIs(t, Evaluate(&Identity{UserID: 3, Roles: []Role{"Auditor"}}, ResourceFunds, http.MethodGet), ErrForbidden)
}

func TestMultipleRolesUnionCapabilities(t *testing.T) {
	id := &Identity{Roles: []Role{RoleDonor, RoleFieldOfficer}}

	assert.NoError(t, Evaluate(id, ResourceFunds, http.MethodDelete))
}

func TestRequiredCapabilities(t *testing.T) {
	assert.Equal(t, []Capability{ReadFunds}, RequiredCapabilities(ResourceFunds, http.MethodGet))
	assert.Equal(t, []Capability{WriteFunds}, RequiredCapabilities(ResourceFunds, http.MethodPut))
	assert.Nil(t, RequiredCapabilities(Resource("invoices"), http.MethodGet))
}

func TestParseRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin, RoleDonor}, ParseRoles([]string{"Admin", "staff", "Donor"}))
	assert.Nil(t, ParseRoles(nil))
}

func TestGrantsReturnsCopy(t *testing.T) {
	caps := Grants(RoleDonor)
	caps[0] = WriteFunds

	assert.Equal(t, ReadBeneficiaries, Grants(RoleDonor)[0])
}
