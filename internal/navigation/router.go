// File: internal/navigation/router.go
package navigation

import (
	"context"

	"cafe_client/internal/auth"

	"go.uber.org/zap"
)

// Destination is the screen the app should show next.
type Destination string

const (
	Splash       Destination = "Splash"
	Login        Destination = "Login"
	VerifyEmail  Destination = "VerifyEmail"
	Home         Destination = "Home"
	MyCafe       Destination = "MyCafe"
	RegisterCafe Destination = "RegisterCafe"
)

// CafeChecker answers whether the signed-in manager already has a café.
// Implemented by auth.Orchestrator.
type CafeChecker interface {
	CheckIfManagerHasCafe(ctx context.Context) bool
}

// Router maps an auth state to a destination.
type Router struct {
	cafes  CafeChecker
	logger *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(cafes CafeChecker, logger *zap.Logger) *Router {
	return &Router{cafes: cafes, logger: logger.Named("Router")}
}

// Next decides where to go for state. Only an authenticated, verified manager
// costs a network call.
func (r *Router) Next(ctx context.Context, state auth.State) Destination {
	switch state.Kind {
	case auth.StateLoading:
		return Splash
	case auth.StateNeedsEmailVerification:
		return VerifyEmail
	case auth.StateAuthenticated:
	default:
		return Login
	}

	user := state.User()
	if user == nil {
		return Login
	}
	if !user.IsManager() {
		return Home
	}
	if user.EmailUnverified() {
		return VerifyEmail
	}
	if r.cafes.CheckIfManagerHasCafe(ctx) {
		return MyCafe
	}
	r.logger.Debug("Manager has no café yet", zap.String("email", user.Email))
	return RegisterCafe
}
