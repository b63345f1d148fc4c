// File: internal/auth/interfaces.go
package auth

import (
	"context"

	"cafe_client/internal/shared"

	"golang.org/x/oauth2"
)

// IdentityProvider issues tokens and creates accounts.
// Implemented by idp.Client.
type IdentityProvider interface {
	ExchangeToken(ctx context.Context, username, password string) (*oauth2.Token, error)
	Signup(ctx context.Context, email, password, displayName string) error
}

// BackendSync is the application backend as seen by the orchestrator.
// Implemented by backend.Client.
type BackendSync interface {
	ResolveRole(ctx context.Context, token string) (*shared.User, error)
	SyncIdentity(ctx context.Context, token string, role shared.Role, profile shared.Profile) error
	GetManagerCafe(ctx context.Context, token string) (*shared.CafeSummary, error)
}

// SessionStore persists the session. Implemented by session.Store.
type SessionStore interface {
	Read(ctx context.Context) *shared.Session
	Token(ctx context.Context) string
	Write(ctx context.Context, sess shared.Session) error
	Clear(ctx context.Context)
}
