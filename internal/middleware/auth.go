package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crm/internal/authz"
)

// RequireAction rejects callers whose role may not perform action. It must
// run after Authenticate.
func RequireAction(action authz.Action, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := Identity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := authz.Authorize(id, action); err != nil {
			logger.Info("access denied",
				zap.String("component", "auth"),
				zap.String("user_id", id.UserID.Hex()),
				zap.String("role", string(id.Role)),
				zap.String("action", string(action)),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}
