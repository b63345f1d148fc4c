package screens

import (
	"context"
	"sync"
	"sync/atomic"

	"cafe_client/internal/auth"
	"cafe_client/internal/navigation"
	"cafe_client/internal/shared"

	"go.uber.org/zap"
)

// Stage is the step the register screen is showing.
type Stage int

const (
	StageForm Stage = iota
	StageVerify
)

// RegisterAuthenticator is the part of the orchestrator the register screen uses.
type RegisterAuthenticator interface {
	StateSource
	Register(ctx context.Context, data shared.RegistrationData) (auth.RegisterResult, error)
	VerifyAndSync(ctx context.Context, data shared.RegistrationData) error
}

// RegisterScreen drives signup, then the "I verified my email" step.
type RegisterScreen struct {
	auth   RegisterAuthenticator
	router Navigator
	logger *zap.Logger
	busy   atomic.Bool

	mu    sync.Mutex
	stage Stage
	role  shared.Role
}

// NewRegisterScreen creates a RegisterScreen on the form stage.
func NewRegisterScreen(a RegisterAuthenticator, router Navigator, logger *zap.Logger) *RegisterScreen {
	return &RegisterScreen{auth: a, router: router, logger: logger.Named("RegisterScreen")}
}

// Busy reports whether an action is in flight.
func (s *RegisterScreen) Busy() bool {
	return s.busy.Load()
}

// Stage returns the current step.
func (s *RegisterScreen) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Role is the role chosen on the last successful submission.
func (s *RegisterScreen) Role() shared.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// PasswordRules is the live checklist shown under the password field.
func (s *RegisterScreen) PasswordRules(password string) auth.PasswordRules {
	return auth.CheckPassword(password)
}

// Submit validates the form and creates the account. On success the screen
// moves to the verify stage.
func (s *RegisterScreen) Submit(ctx context.Context, form auth.RegisterForm) Result {
	if !s.busy.CompareAndSwap(false, true) {
		return Result{Ignored: true}
	}
	defer s.busy.Store(false)

	if err := auth.ValidateRegister(form); err != nil {
		return Result{Error: errorMessage(err)}
	}

	res, err := s.auth.Register(ctx, form.RegistrationData())
	if err != nil {
		logFailure(s.logger, "register", err)
		return Result{Error: errorMessage(err)}
	}

	s.mu.Lock()
	s.stage = StageVerify
	s.role = res.Role
	s.mu.Unlock()
	return Result{Destination: navigation.VerifyEmail}
}

// Verify completes the registration with the pending data and routes.
// A failure keeps the screen on the verify stage so the user can retry.
func (s *RegisterScreen) Verify(ctx context.Context) Result {
	if !s.busy.CompareAndSwap(false, true) {
		return Result{Ignored: true}
	}
	defer s.busy.Store(false)

	if err := s.auth.VerifyAndSync(ctx, shared.RegistrationData{}); err != nil {
		logFailure(s.logger, "verify", err)
		if auth.IsKind(err, auth.KindInvalidState) {
			s.reset()
		}
		return Result{Error: errorMessage(err)}
	}

	s.reset()
	return Result{Destination: s.router.Next(ctx, s.auth.State())}
}

func (s *RegisterScreen) reset() {
	s.mu.Lock()
	s.stage = StageForm
	s.mu.Unlock()
}
