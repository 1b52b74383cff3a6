package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
	"github.com/noah-isme/exam-scheduler-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// AnonymousUserID identifies requests served while authentication is disabled.
const AnonymousUserID = "anonymous"

// JWT protects routes by requiring a valid access token.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Anonymous attaches operator claims to every request. It stands in for JWT when AUTH_ENABLED is off so
// that RBAC-guarded routes stay reachable in local setups.
func Anonymous() gin.HandlerFunc {
	claims := &models.JWTClaims{UserID: AnonymousUserID, Role: models.RoleSuperAdmin}
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
