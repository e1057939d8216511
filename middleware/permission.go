package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/LovationAdmin/feeding-api/permissions"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// RoleLookup resolves the roles of a user.
type RoleLookup interface {
	Roles(ctx context.Context, userID int64) ([]permissions.Role, error)
}

// RequireCapability rejects requests whose caller lacks the capabilities
// the method needs on resource. Roles are looked up once per request.
func RequireCapability(resource permissions.Resource, lookup RoleLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := identity(c, lookup)
		if err != nil {
			logger.Error("role lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		switch err := permissions.Evaluate(id, resource, c.Request.Method); {
		case errors.Is(err, permissions.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		case errors.Is(err, permissions.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

// identity returns nil for anonymous callers without touching lookup.
func identity(c *gin.Context, lookup RoleLookup) (*permissions.Identity, error) {
	if v, ok := c.Get(identityKey); ok {
		return v.(*permissions.Identity), nil
	}

	userID, ok := GetUserID(c)
	if !ok {
		return nil, nil
	}

	roles, err := lookup.Roles(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	id := &permissions.Identity{UserID: userID, Roles: roles}
	c.Set(identityKey, id)
	return id, nil
}
