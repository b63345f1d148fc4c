// File: internal/common/context_keys.go
package common

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// SubjectKey is the context key for the identity provider account id (token "sub")
	SubjectKey = "subject"
	// UserEmailKey is the context key for storing the authenticated user's email
	UserEmailKey = "userEmail"
	// EmailVerifiedKey is the context key for the token's email_verified claim
	EmailVerifiedKey = "emailVerified"
)
