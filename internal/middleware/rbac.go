package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

// ContextCapabilityKey is the gin context key storing the resolved capability.
const ContextCapabilityKey = "currentCapability"

type roleGate interface {
	RequireAny(ctx context.Context, caller string, roles ...models.Role) (models.Capability, error)
}

// RequireRoles rejects callers whose current capability allows none of roles.
// The owner passes any Admin check. Services repeat the check when they act.
func RequireRoles(gate roleGate, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		capability, err := gate.RequireAny(c.Request.Context(), Caller(c), roles...)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextCapabilityKey, capability)
		c.Next()
	}
}

// CurrentCapability returns the capability resolved by RequireRoles, if any.
func CurrentCapability(c *gin.Context) (models.Capability, bool) {
	value, ok := c.Get(ContextCapabilityKey)
	if !ok {
		return models.Capability{}, false
	}
	capability, ok := value.(models.Capability)
	return capability, ok
}
