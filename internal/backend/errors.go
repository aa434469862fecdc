package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks network-level failures: the backend could not be reached
	// or answered with a server-side outage.
	ErrUnavailable = errors.New("backend unavailable")
)

// AuthErrorCode classifies an authentication failure.
type AuthErrorCode string

const (
	CodeInvalidCredentials AuthErrorCode = "invalid_credentials"
	CodeEmailNotConfirmed  AuthErrorCode = "email_not_confirmed"
	CodeRateLimited        AuthErrorCode = "rate_limited"
	CodeUserAlreadyExists  AuthErrorCode = "user_already_exists"
	CodeWeakPassword       AuthErrorCode = "weak_password"
	CodeInvalidRequest     AuthErrorCode = "invalid_request"
	CodeSessionMissing     AuthErrorCode = "session_missing"
	CodeUnexpected         AuthErrorCode = "unexpected_failure"
)

// AuthError is an authentication failure returned to the form that initiated it.
type AuthError struct {
	Code    AuthErrorCode
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError without an underlying cause.
func NewAuthError(code AuthErrorCode, msg string) *AuthError {
	return &AuthError{Code: code, Message: msg}
}

// AsAuthError converts any error into an AuthError. Errors that already are
// AuthErrors are returned as is; anything else becomes CodeUnexpected.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return &AuthError{Code: CodeUnexpected, Message: err.Error(), Err: err}
}
