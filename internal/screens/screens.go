// File: internal/screens/screens.go
package screens

import (
	"context"
	"errors"

	"cafe_client/internal/auth"
	"cafe_client/internal/navigation"

	"go.uber.org/zap"
)

// MsgUnexpected is shown when an operation fails with an error that carries
// no user-facing message.
const MsgUnexpected = "Ocurrió un error inesperado."

// Result is what a screen action hands back to the view. Ignored is set when
// the action was dropped because another one was still running.
type Result struct {
	Destination navigation.Destination
	Error       string
	Ignored     bool
}

// Navigator picks the next destination from an auth state.
type Navigator interface {
	Next(ctx context.Context, state auth.State) navigation.Destination
}

// StateSource exposes the current auth state.
type StateSource interface {
	State() auth.State
}

func errorMessage(err error) string {
	var ae *auth.AuthError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return MsgUnexpected
}

func logFailure(logger *zap.Logger, action string, err error) {
	var ae *auth.AuthError
	if errors.As(err, &ae) {
		logger.Info("Screen action failed", zap.String("action", action), zap.String("detail", ae.Detail()))
		return
	}
	logger.Warn("Screen action failed", zap.String("action", action), zap.Error(err))
}
