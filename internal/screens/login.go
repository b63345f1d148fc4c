package screens

import (
	"context"
	"sync/atomic"

	"cafe_client/internal/auth"

	"go.uber.org/zap"
)

// LoginAuthenticator is the part of the orchestrator the login screen uses.
type LoginAuthenticator interface {
	StateSource
	Login(ctx context.Context, email, password string) error
}

// LoginScreen validates the form, signs in and picks the next destination.
type LoginScreen struct {
	auth   LoginAuthenticator
	router Navigator
	logger *zap.Logger
	busy   atomic.Bool
}

// NewLoginScreen creates a LoginScreen.
func NewLoginScreen(a LoginAuthenticator, router Navigator, logger *zap.Logger) *LoginScreen {
	return &LoginScreen{auth: a, router: router, logger: logger.Named("LoginScreen")}
}

// Busy reports whether a submission is in flight; the view disables the button while true.
func (s *LoginScreen) Busy() bool {
	return s.busy.Load()
}

// Submit runs one login attempt. A submission made while another is running is ignored.
func (s *LoginScreen) Submit(ctx context.Context, form auth.LoginForm) Result {
	if !s.busy.CompareAndSwap(false, true) {
		return Result{Ignored: true}
	}
	defer s.busy.Store(false)

	if err := auth.ValidateLogin(form); err != nil {
		return Result{Error: errorMessage(err)}
	}

	if err := s.auth.Login(ctx, form.Email, form.Password); err != nil {
		logFailure(s.logger, "login", err)
		return Result{Error: errorMessage(err)}
	}
	return Result{Destination: s.router.Next(ctx, s.auth.State())}
}
