// File: internal/common/errors.go
package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// APIError is the error body of the devstack backend. The client reads
// Message when a call fails.
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details interface{}) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// Is matches by status and code, so copies still satisfy errors.Is(err, ErrNotFound).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

var (
	ErrBadRequest     = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "Malformed request.")
	ErrUnauthorized   = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid access token.")
	ErrForbidden      = NewAPIError(http.StatusForbidden, "FORBIDDEN", "Not allowed for this account.")
	ErrNotFound       = NewAPIError(http.StatusNotFound, "NOT_FOUND", "Not found.")
	ErrConflict       = NewAPIError(http.StatusConflict, "CONFLICT", "Already exists.")
	ErrInternalServer = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Something went wrong.")
)

// IsAPIError unwraps err to an *APIError.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// BindError turns a ShouldBind failure into a 422 with one message per
// field, or a plain 400 when the body could not be decoded at all.
func BindError(err error) *APIError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return ErrBadRequest.WithDetails(err.Error())
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "VALIDATION_ERROR",
		Message:    "Invalid input.",
		Details:    fields,
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be an email address"
	case "min":
		return "at least " + fe.Param() + " characters"
	case "max":
		return "at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}
