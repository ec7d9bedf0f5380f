package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/logger"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

// ContextSessionKey is the gin context key storing session claims.
const ContextSessionKey = "currentSession"

type callerContextKey struct{}

type tokenValidator interface {
	ValidateToken(token string) (*models.SessionClaims, error)
}

// Session protects routes by requiring a valid wallet session token.
func Session(sessions tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// OptionalSession attaches claims when present but does not block.
// Browsers cannot set headers on websocket upgrades, so the token query parameter is accepted as well.
func OptionalSession(sessions tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			c.Next()
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// Caller returns the authenticated wallet address, or "" for anonymous requests.
func Caller(c *gin.Context) string {
	return c.GetString(logger.CallerKey)
}

// CallerFromContext returns the wallet address stored on a request context.
func CallerFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(callerContextKey{}).(string); ok {
		return value
	}
	return ""
}

func attach(c *gin.Context, claims *models.SessionClaims) {
	c.Set(ContextSessionKey, claims)
	c.Set(logger.CallerKey, claims.Address)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), callerContextKey{}, claims.Address))
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
