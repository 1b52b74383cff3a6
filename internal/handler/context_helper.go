package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/middleware"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext names the caller for audit records, preferring the email claim.
func actorFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return middleware.AnonymousUserID
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.UserID
}
