package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm/internal/apperr"
	"crm/internal/auth"
	"crm/internal/authz"
)

const identityKey = "identity"

// TokenVerifier turns a raw bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(raw string) (authz.Identity, error)
}

// Authenticate validates the bearer token and stores the caller identity in
// the context. Any failure answers 401.
func Authenticate(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var id authz.Identity
			id, err = verifier.Verify(raw)
			if err == nil {
				c.Set(identityKey, id)
				c.Next()
				return
			}
		}

		appErr := apperr.From(err)
		logger.Debug("token rejected",
			zap.String("component", "auth"),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": appErr.Message})
	}
}

// Identity returns the caller stored by Authenticate.
func Identity(c *gin.Context) (authz.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return authz.Identity{}, false
	}
	id, ok := value.(authz.Identity)
	return id, ok
}
