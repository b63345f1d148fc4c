// File: internal/identity/token.go
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cafe_client/internal/config"
	"cafe_client/internal/platform/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "cafe-devstack"

// ErrTokenRevoked is returned by ValidateToken for a revoked token.
var ErrTokenRevoked = errors.New("token has been revoked")

// Claims are the access token claims the stub identity provider issues.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	ClientID      string `json:"azp,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 access tokens.
type TokenService struct {
	secret   []byte
	audience string
	ttl      time.Duration
	revoked  RevocationList
	logger   *zap.Logger
}

// NewTokenService creates a TokenService. With no DEV_JWT_SECRET configured
// a random per-process secret is used, so tokens do not survive a restart.
func NewTokenService(cfg *config.Config, revoked RevocationList, logger *zap.Logger) (*TokenService, error) {
	logger = logger.Named("TokenService")
	secret := cfg.DevJWTSecret
	if secret == "" {
		generated, err := crypto.GenerateSecret(32)
		if err != nil {
			return nil, fmt.Errorf("could not generate signing secret: %w", err)
		}
		secret = generated
		logger.Warn("DEV_JWT_SECRET not set; using a random secret for this process")
	}
	ttl := cfg.DevTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		secret:   []byte(secret),
		audience: cfg.IDPAudience,
		ttl:      ttl,
		revoked:  revoked,
		logger:   logger,
	}, nil
}

// GenerateAccessToken issues a token for account on behalf of clientID.
func (s *TokenService) GenerateAccessToken(account *Account, clientID string) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(s.ttl)

	claims := &Claims{
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		ClientID:      clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   account.ID.String(),
			ID:        uuid.NewString(),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign access token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ParseToken verifies signature, issuer and expiry without consulting the revocation list.
func (s *TokenService) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateToken parses the token and rejects revoked ones.
func (s *TokenService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		s.logger.Debug("Failed to validate token", zap.Error(err))
		return nil, err
	}
	if claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("could not check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// RevokeToken puts a valid token on the revocation list.
func (s *TokenService) RevokeToken(ctx context.Context, tokenString string) error {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return err
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("token has no id to revoke")
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
