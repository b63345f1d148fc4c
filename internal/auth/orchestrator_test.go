package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"cafe_client/internal/backend"
	"cafe_client/internal/idp"
	"cafe_client/internal/platform/metrics"
	"cafe_client/internal/session"
	"cafe_client/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// MockIdentityProvider is a mock implementation of IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) ExchangeToken(ctx context.Context, username, password string) (*oauth2.Token, error) {
	args := m.Called(ctx, username, password)
	tok, _ := args.Get(0).(*oauth2.Token)
	return tok, args.Error(1)
}

func (m *MockIdentityProvider) Signup(ctx context.Context, email, password, displayName string) error {
	args := m.Called(ctx, email, password, displayName)
	return args.Error(0)
}

// MockBackend is a mock implementation of BackendSync.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ResolveRole(ctx context.Context, token string) (*shared.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*shared.User)
	return u, args.Error(1)
}

func (m *MockBackend) SyncIdentity(ctx context.Context, token string, role shared.Role, profile shared.Profile) error {
	args := m.Called(ctx, token, role, profile)
	return args.Error(0)
}

func (m *MockBackend) GetManagerCafe(ctx context.Context, token string) (*shared.CafeSummary, error) {
	args := m.Called(ctx, token)
	c, _ := args.Get(0).(*shared.CafeSummary)
	return c, args.Error(1)
}

// writeFailsKV accepts reads and deletes but refuses every write.
type writeFailsKV struct {
	*session.MemoryKV
}

func (writeFailsKV) Set(context.Context, map[string]string) error {
	return errors.New("disk full")
}

type fixture struct {
	idp     *MockIdentityProvider
	backend *MockBackend
	store   *session.Store
	metrics *metrics.Metrics
	orch    *Orchestrator
	states  []StateKind
}

func newFixture(t *testing.T, kv session.KeyValue) *fixture {
	t.Helper()
	if kv == nil {
		kv = session.NewMemoryKV()
	}
	f := &fixture{
		idp:     &MockIdentityProvider{},
		backend: &MockBackend{},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	f.store = session.NewStore(kv, zap.NewNop(), f.metrics)
	f.orch = NewOrchestrator(f.idp, f.backend, f.store, zap.NewNop(), f.metrics)
	f.orch.Subscribe(func(s State) { f.states = append(f.states, s.Kind) })
	t.Cleanup(func() {
		f.idp.AssertExpectations(t)
		f.backend.AssertExpectations(t)
	})
	return f
}

// settle restores from the store and clears the recorded transitions.
func (f *fixture) settle(ctx context.Context) {
	f.orch.Restore(ctx)
	f.states = nil
}

func boolPtr(b bool) *bool { return &b }

func token(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
}

func rejected(op, code, description string) error {
	return &idp.Error{Op: op, Credential: "native", StatusCode: 403, Code: code, Description: description}
}

var (
	clientUser  = &shared.User{ID: "u1", Email: "ana@cafe.co", Role: shared.RoleClient}
	managerUser = &shared.User{ID: "u2", Email: "leo@cafe.co", Role: shared.RoleManager, EmailVerified: boolPtr(true)}
)

func registration(role shared.Role) shared.RegistrationData {
	return shared.RegistrationData{
		Email:     "leo@cafe.co",
		Password:  "Secret1!x",
		FirstName: "Leo",
		LastName:  "Paz",
		Role:      role,
	}
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// --- Restore ---

func TestRestore_EmptyStore(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, StateLoading, f.orch.State().Kind)

	st := f.orch.Restore(context.Background())
	assert.Equal(t, StateUnauthenticated, st.Kind)
	assert.Nil(t, st.Session)
}

func TestRestore_StoredSessionWithoutNetwork(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "opaque-token", User: *managerUser}))

	st := f.orch.Restore(ctx)
	require.True(t, st.IsAuthenticated())
	assert.Equal(t, "opaque-token", st.Session.Token)
	assert.Equal(t, *managerUser, *st.User())
	// no expectations were set on the mocks, so any network call would fail the test
}

func TestRestore_ExpiredJWTIsDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: signedJWT(t, time.Now().Add(-time.Hour)), User: *clientUser}))

	st := f.orch.Restore(ctx)
	assert.Equal(t, StateUnauthenticated, st.Kind)
	assert.Nil(t, f.store.Read(ctx))
}

func TestRestore_UnexpiredJWTIsKept(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: signedJWT(t, time.Now().Add(time.Hour)), User: *clientUser}))

	assert.True(t, f.orch.Restore(ctx).IsAuthenticated())
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, "ana@cafe.co", "pw").Return(token("tok-1"), nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-1").Return(clientUser, nil).Once()

	require.NoError(t, f.orch.Login(ctx, " ana@cafe.co ", "pw"))

	st := f.orch.State()
	require.True(t, st.IsAuthenticated())
	assert.Equal(t, "tok-1", st.Session.Token)
	assert.Equal(t, shared.RoleClient, st.User().Role)

	stored := f.store.Read(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, *st.Session, *stored)

	assert.Equal(t, []StateKind{StateLoading, StateAuthenticated}, f.states)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthOperations.WithLabelValues("login", metrics.OutcomeSuccess)))
}

func TestLogin_RejectedCredentials(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, "ana@cafe.co", "bad").
		Return(nil, rejected("token", "invalid_grant", "Wrong email or password.")).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "bad")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidCredentials))
	assert.Equal(t, "Wrong email or password.", err.Error())

	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
	assert.Nil(t, f.store.Read(ctx))
	assert.Equal(t, []StateKind{StateLoading, StateUnauthenticated}, f.states)
	f.backend.AssertNotCalled(t, "ResolveRole", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuthOperations.WithLabelValues("login", metrics.OutcomeFailure)))
}

func TestLogin_LateFailureDoesNotUndoConcurrentSuccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.idp.On("ExchangeToken", mock.Anything, "ana@cafe.co", "bad").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil, rejected("token", "invalid_grant", "Wrong email or password.")).Once()
	f.idp.On("ExchangeToken", mock.Anything, "ana@cafe.co", "pw").Return(token("tok-1"), nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-1").Return(clientUser, nil).Once()

	slow := make(chan error, 1)
	go func() { slow <- f.orch.Login(ctx, "ana@cafe.co", "bad") }()
	<-entered

	require.NoError(t, f.orch.Login(ctx, "ana@cafe.co", "pw"))
	close(release)
	err := <-slow
	assert.True(t, IsKind(err, KindInvalidCredentials))

	st := f.orch.State()
	require.True(t, st.IsAuthenticated())
	stored := f.store.Read(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, *stored, *st.Session)
	assert.Equal(t, []StateKind{StateLoading, StateLoading, StateAuthenticated}, f.states)
}

func TestLogin_RejectedWithoutStructuredBody(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &idp.Error{Op: "token", StatusCode: 502, Description: "<html>bad gateway</html>"}).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.Equal(t, MsgLoginFailed, err.Error())
}

func TestLogin_MalformedResponse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &idp.Error{Op: "token", StatusCode: 200, Err: idp.ErrMalformedResponse}).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.True(t, IsKind(err, KindInvalidCredentials))
	assert.Equal(t, MsgCheckCredentials, err.Error())
}

func TestLogin_TransportFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &idp.Error{Op: "token", Err: errors.New("dial tcp: no route to host")}).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.True(t, IsKind(err, KindConnection))
	assert.Equal(t, MsgConnection, err.Error())
	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
}

func TestLogin_RoleResolutionFailureLeavesNoSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).Return(token("tok-1"), nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-1").
		Return(nil, &backend.Error{Path: "/users/role", StatusCode: 500}).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.True(t, IsKind(err, KindRoleResolutionFailure))
	assert.Equal(t, MsgRoleFailed, err.Error())
	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
	assert.Nil(t, f.store.Read(ctx))
	assert.Empty(t, f.store.Token(ctx))
}

func TestLogin_BackendMessageIsSurfaced(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).Return(token("tok-1"), nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-1").
		Return(nil, &backend.Error{Path: "/users/role", StatusCode: 404, Message: "Usuario no encontrado"}).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.Equal(t, "Usuario no encontrado", err.Error())
}

func TestLogin_StoreWriteFailure(t *testing.T) {
	f := newFixture(t, writeFailsKV{session.NewMemoryKV()})
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).Return(token("tok-1"), nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-1").Return(clientUser, nil).Once()

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.True(t, IsKind(err, KindStoreFailure))
	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
}

func TestLogin_RejectedWhileAuthenticated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *clientUser}))
	f.settle(ctx)

	err := f.orch.Login(ctx, "ana@cafe.co", "pw")
	assert.True(t, IsKind(err, KindInvalidState))
	assert.Empty(t, f.states)
	assert.True(t, f.orch.State().IsAuthenticated())
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)
	data := registration(shared.RoleManager)

	f.idp.On("Signup", mock.Anything, data.Email, data.Password, "Leo Paz").Return(nil).Once()

	res, err := f.orch.Register(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, RegisterResult{NeedsVerification: true, Role: shared.RoleManager}, res)

	st := f.orch.State()
	assert.Equal(t, StateNeedsEmailVerification, st.Kind)
	require.NotNil(t, st.Pending)
	assert.Equal(t, data, st.Pending.RegistrationData)
	assert.Nil(t, st.Session)

	assert.Nil(t, f.store.Read(ctx))
	assert.Equal(t, []StateKind{StateLoading, StateNeedsEmailVerification}, f.states)
}

func TestRegister_DuplicateAccount(t *testing.T) {
	tests := []struct {
		role shared.Role
		want string
	}{
		{shared.RoleManager, MsgDuplicateManager},
		{shared.RoleClient, MsgDuplicateClient},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			f.settle(ctx)

			f.idp.On("Signup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(&idp.Error{Op: "signup", StatusCode: 400, Code: "invalid_signup", Description: "Invalid sign up"}).Once()

			_, err := f.orch.Register(ctx, registration(tt.role))
			assert.True(t, IsKind(err, KindDuplicateAccount))
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
			assert.Nil(t, f.orch.State().Pending)
		})
	}
}

func TestRegister_OtherSignupFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	f.idp.On("Signup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&idp.Error{Op: "signup", StatusCode: 400, Code: "password_too_weak", Description: "Password is too weak"}).Once()

	_, err := f.orch.Register(ctx, registration(shared.RoleClient))
	assert.True(t, IsKind(err, KindSignup))
	assert.Equal(t, "Password is too weak", err.Error())
}

func TestRegister_InvalidRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	_, err := f.orch.Register(ctx, registration(shared.Role("admin")))
	assert.True(t, IsKind(err, KindValidation))
	assert.Empty(t, f.states)
}

// --- VerifyAndSync ---

func pendingFixture(t *testing.T, role shared.Role) (*fixture, shared.RegistrationData) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)
	data := registration(role)
	f.idp.On("Signup", mock.Anything, data.Email, data.Password, "Leo Paz").Return(nil).Once()
	_, err := f.orch.Register(ctx, data)
	require.NoError(t, err)
	f.states = nil
	return f, data
}

func TestVerifyAndSync_Success(t *testing.T) {
	f, data := pendingFixture(t, shared.RoleManager)
	ctx := context.Background()

	f.idp.On("ExchangeToken", mock.Anything, data.Email, data.Password).Return(token("tok-2"), nil).Once()
	f.backend.On("SyncIdentity", mock.Anything, "tok-2", shared.RoleManager, shared.Profile{
		Email: data.Email, FirstName: "Leo", LastName: "Paz",
	}).Return(nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-2").Return(managerUser, nil).Once()

	require.NoError(t, f.orch.VerifyAndSync(ctx, data))

	st := f.orch.State()
	require.True(t, st.IsAuthenticated())
	assert.Nil(t, st.Pending)
	assert.Equal(t, shared.RoleManager, st.User().Role)

	stored := f.store.Read(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, "tok-2", stored.Token)
	assert.Equal(t, []StateKind{StateLoading, StateAuthenticated}, f.states)
}

func TestVerifyAndSync_ZeroDataUsesPending(t *testing.T) {
	f, data := pendingFixture(t, shared.RoleClient)
	ctx := context.Background()

	f.idp.On("ExchangeToken", mock.Anything, data.Email, data.Password).Return(token("tok-2"), nil).Once()
	f.backend.On("SyncIdentity", mock.Anything, "tok-2", shared.RoleClient, mock.Anything).Return(nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-2").Return(clientUser, nil).Once()

	require.NoError(t, f.orch.VerifyAndSync(ctx, shared.RegistrationData{}))
	assert.True(t, f.orch.State().IsAuthenticated())
}

func TestVerifyAndSync_UnverifiedEmailKeepsPending(t *testing.T) {
	f, data := pendingFixture(t, shared.RoleManager)
	ctx := context.Background()

	f.idp.On("ExchangeToken", mock.Anything, data.Email, data.Password).
		Return(nil, rejected("token", "invalid_grant", "Please verify your email before logging in.")).Once()

	err := f.orch.VerifyAndSync(ctx, data)
	assert.True(t, IsKind(err, KindUnverifiedEmail))
	assert.Equal(t, MsgVerifyEmail, err.Error())

	st := f.orch.State()
	assert.Equal(t, StateNeedsEmailVerification, st.Kind)
	require.NotNil(t, st.Pending)
	assert.Equal(t, data, st.Pending.RegistrationData)
	assert.Nil(t, f.store.Read(ctx))
	f.backend.AssertNotCalled(t, "SyncIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyAndSync_SyncFailure(t *testing.T) {
	f, data := pendingFixture(t, shared.RoleClient)
	ctx := context.Background()

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).Return(token("tok-2"), nil).Once()
	f.backend.On("SyncIdentity", mock.Anything, "tok-2", shared.RoleClient, mock.Anything).
		Return(&backend.Error{Path: "/sync-client", StatusCode: 500}).Once()

	err := f.orch.VerifyAndSync(ctx, data)
	assert.True(t, IsKind(err, KindSyncFailure))
	assert.Equal(t, MsgSyncFailed, err.Error())
	assert.Equal(t, StateNeedsEmailVerification, f.orch.State().Kind)
	assert.Nil(t, f.store.Read(ctx))
	f.backend.AssertNotCalled(t, "ResolveRole", mock.Anything, mock.Anything)
}

func TestVerifyAndSync_RetryAfterFailure(t *testing.T) {
	f, data := pendingFixture(t, shared.RoleClient)
	ctx := context.Background()

	f.idp.On("ExchangeToken", mock.Anything, data.Email, data.Password).
		Return(nil, rejected("token", "invalid_grant", "")).Once()
	require.Error(t, f.orch.VerifyAndSync(ctx, data))

	f.idp.On("ExchangeToken", mock.Anything, data.Email, data.Password).Return(token("tok-3"), nil).Once()
	f.backend.On("SyncIdentity", mock.Anything, "tok-3", shared.RoleClient, mock.Anything).Return(nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-3").Return(clientUser, nil).Once()
	require.NoError(t, f.orch.VerifyAndSync(ctx, data))
	assert.True(t, f.orch.State().IsAuthenticated())
}

func TestVerifyAndSync_WithoutPendingRegistration(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	err := f.orch.VerifyAndSync(ctx, registration(shared.RoleClient))
	assert.True(t, IsKind(err, KindInvalidState))
	assert.Empty(t, f.states)
}

func TestVerifyAndSync_RepeatAfterSuccessIsRejected(t *testing.T) {
	f, data := pendingFixture(t, shared.RoleClient)
	ctx := context.Background()

	f.idp.On("ExchangeToken", mock.Anything, mock.Anything, mock.Anything).Return(token("tok-2"), nil).Once()
	f.backend.On("SyncIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.backend.On("ResolveRole", mock.Anything, "tok-2").Return(clientUser, nil).Once()
	require.NoError(t, f.orch.VerifyAndSync(ctx, data))

	err := f.orch.VerifyAndSync(ctx, data)
	assert.True(t, IsKind(err, KindInvalidState))
}

// --- Logout / UpdateUser ---

func TestLogout_ClearsEverything(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *clientUser}))
	f.settle(ctx)

	f.orch.Logout(ctx)
	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
	assert.Nil(t, f.store.Read(ctx))

	assert.NotPanics(t, func() { f.orch.Logout(ctx) })
	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
}

func TestLogout_DropsPendingRegistration(t *testing.T) {
	f, _ := pendingFixture(t, shared.RoleClient)
	f.orch.Logout(context.Background())

	st := f.orch.State()
	assert.Equal(t, StateUnauthenticated, st.Kind)
	assert.Nil(t, st.Pending)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *clientUser}))
	f.settle(ctx)

	updated := *clientUser
	updated.Role = shared.RoleManager
	updated.EmailVerified = boolPtr(false)
	require.NoError(t, f.orch.UpdateUser(ctx, updated))

	assert.Equal(t, updated, *f.orch.State().User())
	stored := f.store.Read(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, updated, stored.User)
	assert.Equal(t, "tok", stored.Token)
	assert.Equal(t, []StateKind{StateAuthenticated}, f.states)
}

func TestUpdateUser_NotSignedIn(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	err := f.orch.UpdateUser(ctx, *clientUser)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestUpdateUser_WriteFailureKeepsState(t *testing.T) {
	kv := session.NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, session.NewStore(kv, zap.NewNop(), nil).Write(ctx, shared.Session{Token: "tok", User: *clientUser}))

	f := newFixture(t, writeFailsKV{kv})
	f.settle(ctx)

	updated := *clientUser
	updated.Role = shared.RoleManager
	err := f.orch.UpdateUser(ctx, updated)
	assert.True(t, IsKind(err, KindStoreFailure))
	assert.Equal(t, shared.RoleClient, f.orch.State().User().Role)
}

func TestState_SnapshotsAreCopies(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *managerUser}))
	f.settle(ctx)

	snap := f.orch.State()
	snap.Session.Token = "tampered"
	*snap.Session.User.EmailVerified = false

	again := f.orch.State()
	assert.Equal(t, "tok", again.Session.Token)
	assert.True(t, *again.Session.User.EmailVerified)
}

// --- Café check ---

func TestCheckIfManagerHasCafe(t *testing.T) {
	tests := []struct {
		name string
		cafe *shared.CafeSummary
		err  error
		want bool
	}{
		{"has cafe", &shared.CafeSummary{ID: "c1", Name: "Tostado"}, nil, true},
		{"not found", nil, &backend.Error{Path: "/managers/me/cafe", StatusCode: 404}, false},
		{"server error", nil, &backend.Error{Path: "/managers/me/cafe", StatusCode: 500}, false},
		{"transport error", nil, errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *managerUser}))
			f.settle(ctx)

			f.backend.On("GetManagerCafe", mock.Anything, "tok").Return(tt.cafe, tt.err).Once()
			assert.Equal(t, tt.want, f.orch.CheckIfManagerHasCafe(ctx))
		})
	}
}

func TestCheckIfManagerHasCafe_NoToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	assert.False(t, f.orch.CheckIfManagerHasCafe(ctx))
	f.backend.AssertNotCalled(t, "GetManagerCafe", mock.Anything, mock.Anything)
}

// --- Revalidate ---

func TestRevalidate_UnauthorizedSignsOut(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *clientUser}))
	f.settle(ctx)

	f.backend.On("ResolveRole", mock.Anything, "tok").
		Return(nil, &backend.Error{Path: "/users/role", StatusCode: 401}).Once()

	err := f.orch.Revalidate(ctx)
	assert.True(t, IsKind(err, KindInvalidCredentials))
	assert.Equal(t, StateUnauthenticated, f.orch.State().Kind)
	assert.Nil(t, f.store.Read(ctx))
}

func TestRevalidate_ChangedRecordIsStored(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *clientUser}))
	f.settle(ctx)

	promoted := *clientUser
	promoted.Role = shared.RoleManager
	f.backend.On("ResolveRole", mock.Anything, "tok").Return(&promoted, nil).Once()

	require.NoError(t, f.orch.Revalidate(ctx))
	assert.Equal(t, shared.RoleManager, f.orch.State().User().Role)
	assert.Equal(t, shared.RoleManager, f.store.Read(ctx).User.Role)
}

func TestRevalidate_UnchangedRecordPublishesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *managerUser}))
	f.settle(ctx)

	same := *managerUser
	same.EmailVerified = boolPtr(true)
	f.backend.On("ResolveRole", mock.Anything, "tok").Return(&same, nil).Once()

	require.NoError(t, f.orch.Revalidate(ctx))
	assert.Empty(t, f.states)
}

func TestRevalidate_TransientFailureKeepsSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Write(ctx, shared.Session{Token: "tok", User: *clientUser}))
	f.settle(ctx)

	f.backend.On("ResolveRole", mock.Anything, "tok").Return(nil, errors.New("timeout")).Once()

	err := f.orch.Revalidate(ctx)
	assert.True(t, IsKind(err, KindRoleResolutionFailure))
	assert.True(t, f.orch.State().IsAuthenticated())
	assert.NotNil(t, f.store.Read(ctx))
}

func TestRevalidate_SignedOutIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.settle(ctx)

	assert.NoError(t, f.orch.Revalidate(ctx))
}

// --- Subscribe ---

func TestSubscribe_Unsubscribe(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var seen []StateKind
	unsubscribe := f.orch.Subscribe(func(s State) { seen = append(seen, s.Kind) })
	f.orch.Restore(ctx)
	unsubscribe()
	f.orch.Logout(ctx)

	assert.Equal(t, []StateKind{StateUnauthenticated}, seen)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.StateTransitions.WithLabelValues("unauthenticated")))
}
