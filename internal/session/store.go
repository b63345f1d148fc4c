// File: internal/session/store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cafe_client/internal/platform/metrics"
	"cafe_client/internal/shared"

	"go.uber.org/zap"
)

// Storage keys. Both are written and removed together.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrInvalidSession is returned by Write for a session without token or email.
var ErrInvalidSession = errors.New("session: token and user email are required")

// Store persists the signed-in session across app launches.
type Store struct {
	kv      KeyValue
	logger  *zap.Logger
	metrics *metrics.Metrics

	// cleared is set when Clear could not delete the keys; Read then reports no
	// session until the next successful Write.
	mu      sync.RWMutex
	cleared bool
}

// NewStore creates a Store over the given backend.
func NewStore(kv KeyValue, logger *zap.Logger, m *metrics.Metrics) *Store {
	return &Store{
		kv:      kv,
		logger:  logger.Named("SessionStore"),
		metrics: m,
	}
}

// Read returns the stored session, or nil when there is none. A missing key,
// a partial pair or an undecodable user record all count as no session.
func (s *Store) Read(ctx context.Context) *shared.Session {
	s.mu.RLock()
	cleared := s.cleared
	s.mu.RUnlock()
	if cleared {
		return nil
	}

	entries, err := s.kv.Get(ctx, KeyToken, KeyUser)
	if err != nil {
		s.logger.Warn("Session read failed, treating as signed out", zap.Error(err))
		s.metrics.IncStoreFailure("read")
		return nil
	}

	token, hasToken := entries[KeyToken]
	rawUser, hasUser := entries[KeyUser]
	if !hasToken && !hasUser {
		return nil
	}
	if !hasToken || !hasUser {
		s.logger.Warn("Partial session in storage, ignoring",
			zap.Bool("has_token", hasToken),
			zap.Bool("has_user", hasUser),
		)
		return nil
	}

	var user shared.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("Stored user record is not valid JSON, ignoring", zap.Error(err))
		return nil
	}

	sess := &shared.Session{Token: token, User: user}
	if !sess.Valid() {
		s.logger.Warn("Stored session is incomplete, ignoring")
		return nil
	}
	return sess
}

// Token returns the stored token, or "" when there is none.
func (s *Store) Token(ctx context.Context) string {
	if sess := s.Read(ctx); sess != nil {
		return sess.Token
	}
	return ""
}

// Write stores token and user in a single backend operation.
func (s *Store) Write(ctx context.Context, sess shared.Session) error {
	if !sess.Valid() {
		return ErrInvalidSession
	}
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	if err := s.kv.Set(ctx, map[string]string{
		KeyToken: sess.Token,
		KeyUser:  string(rawUser),
	}); err != nil {
		s.metrics.IncStoreFailure("write")
		return fmt.Errorf("session: write: %w", err)
	}
	s.mu.Lock()
	s.cleared = false
	s.mu.Unlock()
	return nil
}

// Clear removes both keys. Failures are logged and otherwise ignored; the
// session still reads as absent for the rest of the process.
func (s *Store) Clear(ctx context.Context) {
	err := s.kv.Delete(ctx, KeyToken, KeyUser)

	s.mu.Lock()
	s.cleared = err != nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Failed to clear stored session", zap.Error(err))
		s.metrics.IncStoreFailure("clear")
	}
}
