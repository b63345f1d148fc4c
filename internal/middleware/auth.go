// File: internal/middleware/auth.go
package middleware

import (
	"context"

	"cafe_client/internal/common"
	"cafe_client/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenValidator validates an access token issued by the identity provider.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*identity.Claims, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(validator TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := validator.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.Warn("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails(err.Error()))
			return
		}

		subject, err := uuid.Parse(claims.Subject)
		if err != nil {
			logger.Warn("Token subject is not a valid id", zap.String("sub", claims.Subject))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Token subject is invalid."))
			return
		}

		c.Set(common.SubjectKey, subject)
		c.Set(common.UserEmailKey, claims.Email)
		c.Set(common.EmailVerifiedKey, claims.EmailVerified)

		logger.Debug("User authenticated successfully",
			zap.String("subject", subject.String()),
			zap.String("email", claims.Email),
		)

		c.Next()
	}
}
