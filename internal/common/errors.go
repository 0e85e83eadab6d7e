// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values;
// only the transport boundary maps them to status codes.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorForbidden     = errors.New("forbidden")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrNothingToUpdate = errors.New("no fields to update")

	// Credential errors. Unknown email and wrong password share one value
	// so the caller cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Self-action guard (delete/deactivate own account).
	ErrSelfAction = errors.New("action not allowed on own account")
)

// Auth errors. Each one wraps the broad class it belongs to, so a boundary
// can decide on errors.Is(err, ErrorUnauthorized) or ErrorForbidden alone.
var (
	ErrTokenRequired = &classError{msg: "token required", class: ErrorUnauthorized}
	ErrTokenExpired  = &classError{msg: "token expired", class: ErrorUnauthorized}
	ErrUserNotFound  = &classError{msg: "user not found or inactive", class: ErrorUnauthorized}
	ErrUserInactive  = &classError{msg: "user inactive", class: ErrorUnauthorized}
	ErrInvalidToken  = &classError{msg: "invalid token", class: ErrorForbidden}
	ErrNotOwner      = &classError{msg: "access denied: only own data is accessible", class: ErrorForbidden}
)

type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }

// ConflictError reports a uniqueness violation on a single field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return e.Field + " already in use" }

func (e *ConflictError) Unwrap() error { return ErrConflict }
