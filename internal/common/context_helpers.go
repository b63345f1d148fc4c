// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetTokenFromContext retrieves the bearer token from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetSubjectFromContext retrieves the authenticated account id.
// Returns uuid.Nil if not found or not a UUID.
func GetSubjectFromContext(c *gin.Context) uuid.UUID {
	val, exists := c.Get(SubjectKey)
	if !exists {
		return uuid.Nil
	}
	subject, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return subject
}

// GetUserEmailFromContext retrieves the authenticated email.
func GetUserEmailFromContext(c *gin.Context) string {
	return c.GetString(UserEmailKey)
}

// GetEmailVerifiedFromContext reports the token's email_verified claim.
func GetEmailVerifiedFromContext(c *gin.Context) bool {
	return c.GetBool(EmailVerifiedKey)
}
