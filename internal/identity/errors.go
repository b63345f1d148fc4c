package identity

import (
	"fmt"
	"net/http"
)

// Error is an identity-provider style failure. Token endpoint errors render as
// {error, error_description}; signup errors as {code, description}.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Description)
}

func newError(status int, code, description string) *Error {
	return &Error{Status: status, Code: code, Description: description}
}

var (
	errAccessDenied       = newError(http.StatusUnauthorized, "access_denied", "Unauthorized")
	errGrantNotAllowed    = newError(http.StatusForbidden, "unauthorized_client", "Grant type 'password' not allowed for the client.")
	errUnsupportedGrant   = newError(http.StatusBadRequest, "unsupported_grant_type", "Unsupported grant type")
	errWrongCredentials   = newError(http.StatusForbidden, "invalid_grant", "Wrong email or password.")
	errEmailNotVerified   = newError(http.StatusForbidden, "invalid_grant", "Please verify your email before logging in.")
	errInvalidSignup      = newError(http.StatusBadRequest, "invalid_signup", "Invalid sign up")
	errInvalidPassword    = newError(http.StatusBadRequest, "invalid_password", "Password is too weak")
	errBadSignupRequest   = newError(http.StatusBadRequest, "bad.request", "Missing email or password")
	errUnknownConnection  = newError(http.StatusBadRequest, "invalid_connection", "Connection does not exist")
	errTokenNotRecognised = newError(http.StatusBadRequest, "invalid_request", "Token is not valid")
	errAccountNotFound    = newError(http.StatusNotFound, "not_found", "Account not found")
	errServiceUnavailable = newError(http.StatusServiceUnavailable, "temporarily_unavailable", "Please try again later")
)

func serviceNotFound(audience string) *Error {
	return newError(http.StatusForbidden, "access_denied", fmt.Sprintf("Service not found: %s", audience))
}
