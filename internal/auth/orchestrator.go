// File: internal/auth/orchestrator.go
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cafe_client/internal/backend"
	"cafe_client/internal/idp"
	"cafe_client/internal/platform/metrics"
	"cafe_client/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// MsgSessionExpired is returned by Revalidate when the backend no longer accepts the token.
const MsgSessionExpired = "Tu sesión expiró. Iniciá sesión nuevamente."

// RegisterResult is returned by a successful Register.
type RegisterResult struct {
	NeedsVerification bool
	Role              shared.Role
}

type subscriber struct {
	id int
	fn func(State)
}

// Orchestrator owns the authentication state and is the only writer of the
// session store. Operations are expected to be triggered one at a time by the
// UI; Loading is published so the UI can disable its controls, but calls are
// not serialised here.
type Orchestrator struct {
	idp     IdentityProvider
	backend BackendSync
	store   SessionStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	state   State
	settled State // last non-Loading state; failed operations return here
	subs    []subscriber
	nextSub int
}

// NewOrchestrator creates an orchestrator in the Loading state. Call Restore
// once at startup.
func NewOrchestrator(
	idpClient IdentityProvider,
	backendClient BackendSync,
	store SessionStore,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		idp:     idpClient,
		backend: backendClient,
		store:   store,
		logger:  logger.Named("AuthOrchestrator"),
		metrics: m,
		now:     time.Now,
		state:   loading(),
		settled: unauthenticated(),
	}
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe registers fn to be called with every new state. The returned
// function removes the subscription.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs = append(o.subs, subscriber{id: id, fn: fn})
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *Orchestrator) setState(s State) {
	o.publish(s, nil)
}

// publish installs s and notifies subscribers. When cond is set it is checked
// against the current state under the lock and s is dropped if it fails.
func (o *Orchestrator) publish(s State, cond func(current State) bool) bool {
	o.mu.Lock()
	if cond != nil && !cond(o.state) {
		o.mu.Unlock()
		return false
	}
	o.state = s
	if s.Kind != StateLoading {
		o.settled = s
	}
	subs := make([]subscriber, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	o.metrics.IncTransition(s.Kind.String())
	for _, sub := range subs {
		sub.fn(s.clone())
	}
	return true
}

// begin checks the precondition against the last settled state and, if it
// holds, publishes Loading. It returns the state to revert to on failure.
func (o *Orchestrator) begin(check func(State) *AuthError) (State, *AuthError) {
	o.mu.Lock()
	prev := o.settled
	o.mu.Unlock()

	if check != nil {
		if aerr := check(prev); aerr != nil {
			return prev, aerr
		}
	}
	o.setState(loading())
	return prev, nil
}

// fail reverts to prev, unless another call already settled the state while
// this one was in flight; memory must keep matching what that call stored.
func (o *Orchestrator) fail(op string, prev State, aerr *AuthError) error {
	if !o.publish(prev, stillLoading) {
		o.logger.Debug("State settled by a concurrent call, not reverting", zap.String("operation", op))
	}
	o.metrics.ObserveOperation(op, aerr)
	o.logger.Warn("Auth operation failed",
		zap.String("operation", op),
		zap.String("kind", string(aerr.Kind)),
		zap.String("state", prev.Kind.String()),
		zap.Error(aerr.Err),
	)
	return aerr
}

func stillLoading(current State) bool {
	return current.Kind == StateLoading
}

func notWhileAuthenticated(s State) *AuthError {
	if s.Kind == StateAuthenticated {
		return newAuthError(KindInvalidState, MsgAlreadySignedIn, nil)
	}
	return nil
}

// Restore resolves the initial state from the session store without any
// network call. A JWT whose exp claim has passed counts as no session.
func (o *Orchestrator) Restore(ctx context.Context) State {
	sess := o.store.Read(ctx)
	if sess != nil && o.tokenExpired(sess.Token) {
		o.logger.Info("Stored token has expired, discarding session")
		o.store.Clear(ctx)
		sess = nil
	}

	if sess == nil {
		o.setState(unauthenticated())
	} else {
		o.logger.Debug("Session restored", zap.String("email", sess.User.Email), zap.String("role", string(sess.User.Role)))
		o.setState(authenticated(*sess))
	}
	return o.State()
}

// tokenExpired only inspects tokens that parse as JWTs; opaque tokens are
// left for the backend to judge.
func (o *Orchestrator) tokenExpired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(o.now())
}

// Login exchanges the credentials for a token, resolves the user's role and
// persists the session.
func (o *Orchestrator) Login(ctx context.Context, email, password string) error {
	const op = "login"
	email = strings.TrimSpace(email)

	prev, aerr := o.begin(notWhileAuthenticated)
	if aerr != nil {
		return aerr
	}

	tok, err := o.idp.ExchangeToken(ctx, email, password)
	if err != nil {
		return o.fail(op, prev, loginTokenError(err))
	}

	user, err := o.backend.ResolveRole(ctx, tok.AccessToken)
	if err != nil {
		return o.fail(op, prev, backendError(KindRoleResolutionFailure, MsgRoleFailed, err))
	}

	sess := shared.Session{Token: tok.AccessToken, User: *user}
	if err := o.store.Write(ctx, sess); err != nil {
		return o.fail(op, prev, newAuthError(KindStoreFailure, MsgStoreFailed, err))
	}

	o.setState(authenticated(sess))
	o.metrics.ObserveOperation(op, nil)
	o.logger.Info("User logged in", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return nil
}

// Register creates the identity provider account and moves to
// NeedsEmailVerification. Nothing is persisted.
func (o *Orchestrator) Register(ctx context.Context, data shared.RegistrationData) (RegisterResult, error) {
	const op = "register"
	data.Email = strings.TrimSpace(data.Email)

	if !data.Role.Valid() {
		return RegisterResult{}, newAuthError(KindValidation, MsgInvalidRole, nil)
	}

	prev, aerr := o.begin(notWhileAuthenticated)
	if aerr != nil {
		return RegisterResult{}, aerr
	}

	if err := o.idp.Signup(ctx, data.Email, data.Password, data.DisplayName()); err != nil {
		return RegisterResult{}, o.fail(op, prev, signupError(data.Role, err))
	}

	o.setState(needsVerification(data))
	o.metrics.ObserveOperation(op, nil)
	o.logger.Info("Account created, waiting for email verification",
		zap.String("email", data.Email),
		zap.String("role", string(data.Role)),
	)
	return RegisterResult{NeedsVerification: true, Role: data.Role}, nil
}

// VerifyAndSync signs in with the registration credentials, creates the
// backend record and persists the session. It only runs while a registration
// is pending; on failure the pending registration is kept for a retry.
// A zero data falls back to the pending registration.
func (o *Orchestrator) VerifyAndSync(ctx context.Context, data shared.RegistrationData) error {
	const op = "verify_and_sync"

	prev, aerr := o.begin(func(s State) *AuthError {
		if s.Kind != StateNeedsEmailVerification || s.Pending == nil {
			return newAuthError(KindInvalidState, MsgNothingToVerify, nil)
		}
		return nil
	})
	if aerr != nil {
		return aerr
	}
	if data.Email == "" {
		data = prev.Pending.RegistrationData
	}
	data.Email = strings.TrimSpace(data.Email)

	tok, err := o.idp.ExchangeToken(ctx, data.Email, data.Password)
	if err != nil {
		return o.fail(op, prev, verifyTokenError(err))
	}

	if err := o.backend.SyncIdentity(ctx, tok.AccessToken, data.Role, data.Profile()); err != nil {
		return o.fail(op, prev, backendError(KindSyncFailure, MsgSyncFailed, err))
	}

	user, err := o.backend.ResolveRole(ctx, tok.AccessToken)
	if err != nil {
		return o.fail(op, prev, backendError(KindRoleResolutionFailure, MsgUserDataFailed, err))
	}

	sess := shared.Session{Token: tok.AccessToken, User: *user}
	if err := o.store.Write(ctx, sess); err != nil {
		return o.fail(op, prev, newAuthError(KindStoreFailure, MsgStoreFailed, err))
	}

	o.setState(authenticated(sess))
	o.metrics.ObserveOperation(op, nil)
	o.logger.Info("Registration verified and synced", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return nil
}

// Logout clears the stored session and always ends Unauthenticated.
func (o *Orchestrator) Logout(ctx context.Context) {
	o.store.Clear(ctx)
	o.setState(unauthenticated())
	o.metrics.ObserveOperation("logout", nil)
	o.logger.Info("User logged out")
}

// UpdateUser replaces the signed-in user record, writing through the store first.
func (o *Orchestrator) UpdateUser(ctx context.Context, user shared.User) error {
	const op = "update_user"

	o.mu.Lock()
	cur := o.settled
	o.mu.Unlock()

	if cur.Kind != StateAuthenticated || cur.Session == nil {
		return newAuthError(KindInvalidState, MsgNotSignedIn, nil)
	}
	if strings.TrimSpace(user.Email) == "" || !user.Role.Valid() {
		return newAuthError(KindValidation, MsgUserMismatch, nil)
	}

	sess := shared.Session{Token: cur.Session.Token, User: user}
	if err := o.store.Write(ctx, sess); err != nil {
		aerr := newAuthError(KindStoreFailure, MsgStoreFailed, err)
		o.metrics.ObserveOperation(op, aerr)
		o.logger.Error("Failed to persist updated user", zap.Error(err))
		return aerr
	}

	o.setState(authenticated(sess))
	o.metrics.ObserveOperation(op, nil)
	return nil
}

// ManagerCafe returns the café of the signed-in manager using the stored token.
func (o *Orchestrator) ManagerCafe(ctx context.Context) (*shared.CafeSummary, error) {
	token := o.store.Token(ctx)
	if token == "" {
		return nil, newAuthError(KindInvalidState, MsgNotSignedIn, nil)
	}
	return o.backend.GetManagerCafe(ctx, token)
}

// CheckIfManagerHasCafe is true only when the backend returns the manager's
// café. No token, a 404 and any other failure all yield false.
func (o *Orchestrator) CheckIfManagerHasCafe(ctx context.Context) bool {
	_, err := o.ManagerCafe(ctx)
	switch {
	case err == nil:
		return true
	case IsKind(err, KindInvalidState), errors.Is(err, backend.ErrNotFound):
		return false
	default:
		o.logger.Warn("Café check failed, assuming none", zap.Error(err))
		return false
	}
}

// Revalidate asks the backend for the current user record. An unauthorized
// answer forces a logout; a changed record replaces the stored one.
func (o *Orchestrator) Revalidate(ctx context.Context) error {
	const op = "revalidate"

	o.mu.Lock()
	cur := o.settled
	o.mu.Unlock()
	if cur.Kind != StateAuthenticated || cur.Session == nil {
		return nil
	}

	user, err := o.backend.ResolveRole(ctx, cur.Session.Token)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			o.logger.Info("Token rejected by backend, signing out", zap.Error(err))
			o.Logout(ctx)
			aerr := newAuthError(KindInvalidCredentials, MsgSessionExpired, err)
			o.metrics.ObserveOperation(op, aerr)
			return aerr
		}
		aerr := backendError(KindRoleResolutionFailure, MsgRoleFailed, err)
		o.metrics.ObserveOperation(op, aerr)
		return aerr
	}

	o.metrics.ObserveOperation(op, nil)
	if sameUser(*user, cur.Session.User) {
		return nil
	}
	return o.UpdateUser(ctx, *user)
}

func sameUser(a, b shared.User) bool {
	if a.ID != b.ID || a.Email != b.Email || a.Role != b.Role {
		return false
	}
	if (a.EmailVerified == nil) != (b.EmailVerified == nil) {
		return false
	}
	return a.EmailVerified == nil || *a.EmailVerified == *b.EmailVerified
}

// --- error classification ---

func loginTokenError(err error) *AuthError {
	var idpErr *idp.Error
	switch {
	case errors.Is(err, idp.ErrRejected) && errors.As(err, &idpErr):
		msg := idpErr.UserMessage()
		if msg == "" {
			msg = MsgLoginFailed
		}
		return newAuthError(KindInvalidCredentials, msg, err)
	case errors.Is(err, idp.ErrMalformedResponse):
		return newAuthError(KindInvalidCredentials, MsgCheckCredentials, err)
	default:
		return newAuthError(KindConnection, MsgConnection, err)
	}
}

func verifyTokenError(err error) *AuthError {
	if errors.Is(err, idp.ErrRejected) || errors.Is(err, idp.ErrMalformedResponse) {
		return newAuthError(KindUnverifiedEmail, MsgVerifyEmail, err)
	}
	return newAuthError(KindConnection, MsgConnection, err)
}

func signupError(role shared.Role, err error) *AuthError {
	if errors.Is(err, idp.ErrDuplicateAccount) {
		msg := MsgDuplicateClient
		if role == shared.RoleManager {
			msg = MsgDuplicateManager
		}
		return newAuthError(KindDuplicateAccount, msg, err)
	}
	var idpErr *idp.Error
	if errors.Is(err, idp.ErrRejected) && errors.As(err, &idpErr) {
		msg := idpErr.UserMessage()
		if msg == "" {
			msg = MsgSignupFailed
		}
		return newAuthError(KindSignup, msg, err)
	}
	return newAuthError(KindConnection, MsgConnection, err)
}

func backendError(kind Kind, fallback string, err error) *AuthError {
	var apiErr *backend.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" && len(apiErr.Message) < 200 {
		return newAuthError(kind, apiErr.Message, err)
	}
	return newAuthError(kind, fallback, err)
}
