// File: internal/identity/service.go
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cafe_client/internal/common"
	"cafe_client/internal/config"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	grantTypePassword = "password"
	defaultScope      = "openid profile email"
	minPasswordLength = 8
)

// registeredClient is an application allowed to call the stub provider.
type registeredClient struct {
	id            string
	secret        string
	passwordGrant bool
}

// Service implements signup, the password grant and the dev-only helpers.
type Service struct {
	repo       Repository
	tokens     *TokenService
	connection string
	audience   string
	clients    map[string]registeredClient
	logger     *zap.Logger
}

// NewService creates the stub identity provider. The native client gets the
// password grant only when DEV_NATIVE_PASSWORD_GRANT is set; the backend
// client always has it and must present its secret.
func NewService(repo Repository, tokens *TokenService, cfg *config.Config, logger *zap.Logger) *Service {
	clients := make(map[string]registeredClient)
	if cfg.IDPNativeClientID != "" {
		clients[cfg.IDPNativeClientID] = registeredClient{
			id:            cfg.IDPNativeClientID,
			passwordGrant: cfg.DevNativePasswordGrant,
		}
	}
	if cfg.IDPBackendClientID != "" {
		clients[cfg.IDPBackendClientID] = registeredClient{
			id:            cfg.IDPBackendClientID,
			secret:        cfg.IDPBackendClientSecret,
			passwordGrant: true,
		}
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		connection: cfg.IDPConnection,
		audience:   cfg.IDPAudience,
		clients:    clients,
		logger:     logger.Named("IdentityService"),
	}
}

func (s *Service) client(id, secret string) (registeredClient, error) {
	c, ok := s.clients[id]
	if !ok {
		return registeredClient{}, errAccessDenied
	}
	if c.secret != "" && c.secret != secret {
		return registeredClient{}, errAccessDenied
	}
	return c, nil
}

func (s *Service) checkConnection(connection string) error {
	if connection != "" && connection != s.connection {
		return errUnknownConnection
	}
	return nil
}

// Signup creates an unverified account.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Account, error) {
	if _, ok := s.clients[req.ClientID]; !ok {
		return nil, errAccessDenied
	}
	if err := s.checkConnection(req.Connection); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, errBadSignupRequest
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errInvalidSignup
	}
	if len(req.Password) < minPasswordLength {
		return nil, errInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password during signup", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &Account{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(req.Name),
		Connection:   s.connection,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrConflict) {
			s.logger.Info("Signup for existing account rejected", zap.String("email", email))
			return nil, errInvalidSignup
		}
		s.logger.Error("Failed to create account", zap.Error(err), zap.String("email", email))
		return nil, errServiceUnavailable
	}

	s.logger.Info("Account created", zap.String("email", email), zap.String("accountID", account.ID.String()))
	return account, nil
}

// PasswordGrant exchanges username and password for an access token.
func (s *Service) PasswordGrant(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if req.GrantType != grantTypePassword {
		return nil, errUnsupportedGrant
	}
	client, err := s.client(req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !client.passwordGrant {
		return nil, errGrantNotAllowed
	}
	if req.Audience != "" && s.audience != "" && req.Audience != s.audience {
		return nil, serviceNotFound(req.Audience)
	}
	if err := s.checkConnection(req.Connection); err != nil {
		return nil, err
	}

	account, err := s.repo.FindByEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errWrongCredentials
		}
		s.logger.Error("Failed to load account", zap.Error(err))
		return nil, errServiceUnavailable
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return nil, errWrongCredentials
	}
	if !account.EmailVerified {
		return nil, errEmailNotVerified
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(account, client.id)
	if err != nil {
		return nil, errServiceUnavailable
	}

	s.logger.Info("Access token issued", zap.String("accountID", account.ID.String()), zap.String("clientID", client.id))
	scope := req.Scope
	if scope == "" {
		scope = defaultScope
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Round(time.Second) / time.Second),
		Scope:       scope,
	}, nil
}

// VerifyEmail marks the account's email as verified, standing in for the
// link the real provider emails out.
func (s *Service) VerifyEmail(ctx context.Context, email string) error {
	if err := s.repo.MarkEmailVerified(ctx, email); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errAccountNotFound
		}
		return err
	}
	s.logger.Info("Email verified", zap.String("email", normalizeEmail(email)))
	return nil
}

// Revoke invalidates an access token before it expires.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if err := s.tokens.RevokeToken(ctx, token); err != nil {
		s.logger.Debug("Revocation rejected", zap.Error(err))
		return errTokenNotRecognised
	}
	return nil
}
