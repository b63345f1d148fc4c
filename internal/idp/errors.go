package idp

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected matches any non-2xx answer from the identity provider.
	ErrRejected = errors.New("idp: request rejected")
	// ErrDuplicateAccount matches a signup for an email that already has an account.
	ErrDuplicateAccount = errors.New("idp: account already exists")
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("idp: malformed response")
)

// Signup error codes that mean the account already exists.
var duplicateCodes = map[string]bool{
	"invalid_signup": true,
	"user_exists":    true,
}

// Error describes a failed call to the identity provider.
type Error struct {
	Op          string // "token" or "signup"
	Credential  string // credential set name used for the attempt
	StatusCode  int    // 0 when the request never got an answer
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("idp %s (%s): %v", e.Op, e.Credential, e.Err)
	case e.Description != "":
		return fmt.Sprintf("idp %s (%s): %d %s: %s", e.Op, e.Credential, e.StatusCode, e.Code, e.Description)
	default:
		return fmt.Sprintf("idp %s (%s): status %d %s", e.Op, e.Credential, e.StatusCode, e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers test with errors.Is(err, ErrRejected) and errors.Is(err, ErrDuplicateAccount).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode > 299)
	case ErrDuplicateAccount:
		return e.Op == opSignup && duplicateCodes[e.Code]
	}
	return false
}

// UserMessage is the provider's human readable explanation. It is empty
// unless the provider answered with a structured error carrying a code.
func (e *Error) UserMessage() string {
	if e.Code == "" {
		return ""
	}
	return e.Description
}
