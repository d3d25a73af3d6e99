// Package common defines shared constants and sentinel errors used across
// the Lango server packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Credential errors.
	ErrWeakPassword = errors.New("weak password")

	// Token errors.
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrMalformedToken = errors.New("malformed token")
)

// Error pairs a sentinel kind with a message that is safe to show to
// clients. errors.Is matches it against Kind.
type Error struct {
	Kind    error
	Message string
}

// NewError returns an Error of the given kind.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewValidationError reports a rejected request field set.
func NewValidationError(msg string) *Error {
	return NewError(ErrorValidation, msg)
}
