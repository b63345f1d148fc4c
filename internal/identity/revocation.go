// File: internal/identity/revocation.go
package identity

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// RevocationList remembers revoked token ids until the tokens would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InMemoryRevocationList is a RevocationList backed by an expiring cache.
type InMemoryRevocationList struct {
	cache *cache.Cache
}

// NewInMemoryRevocationList creates an empty list. Expired entries are purged
// every cleanupInterval.
func NewInMemoryRevocationList(cleanupInterval time.Duration) *InMemoryRevocationList {
	return &InMemoryRevocationList{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Revoke adds jti to the list for the remaining lifetime of its token.
func (l *InMemoryRevocationList) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	l.cache.Set(jti, struct{}{}, ttl)
	return nil
}

// IsRevoked checks whether jti has been revoked.
func (l *InMemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := l.cache.Get(jti)
	return found, nil
}
