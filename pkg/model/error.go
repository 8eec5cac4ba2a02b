package model

import (
	"errors"
	"net/http"
)

// Error is a typed domain error. Status is the HTTP status code the
// transport layer should map the error to; the core never writes HTTP
// responses itself.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports missing or malformed input (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// AuthError reports a failed authentication attempt (HTTP 401).
func AuthError(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// NotFoundError reports a missing record (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// ConflictError reports a uniqueness conflict (HTTP 409).
func ConflictError(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}

// Well-known domain errors. Handlers and tests compare against these
// with errors.Is.
var (
	// ErrMissingIdentity means an identity payload was absent or lacked
	// a provider or subject id.
	ErrMissingIdentity = ValidationError("missing identity")

	// ErrTokenRequired means a provider token was not supplied.
	ErrTokenRequired = ValidationError("Token is required")

	// ErrInvalidProviderToken means a provider rejected the presented
	// credential or returned a payload without a subject id.
	ErrInvalidProviderToken = AuthError("invalid provider token")

	// ErrInvalidSessionToken means a session token failed verification
	// or has expired.
	ErrInvalidSessionToken = AuthError("Invalid or expired token")

	// ErrInvalidCredentials means an email/password pair did not match.
	ErrInvalidCredentials = AuthError("invalid email or password")

	// ErrUserNotFound means no user exists for the given id or email.
	ErrUserNotFound = NotFoundError("User not found")

	// ErrUserExists means registration hit an already-registered email.
	ErrUserExists = ConflictError("User already exists")

	// ErrProviderNotLinked means the user has no link for the provider.
	ErrProviderNotLinked = NotFoundError("OAuth provider not linked")

	// ErrAlreadyLinked means the (provider, providerID) pair already has
	// a link, to this user or any other.
	ErrAlreadyLinked = ConflictError("OAuth account already linked to another user")

	// ErrLastLoginMethod guards the login-method-availability invariant:
	// a user must always retain a password credential or at least one
	// provider link.
	ErrLastLoginMethod = ValidationError("Cannot remove last login method without a password set")
)

// StatusCode extracts the HTTP status for an error, defaulting to 500
// for anything that is not a typed domain error.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
