// Package apperror defines the error taxonomy shared by the backend services,
// the flux store and the HTTP layer.
//
// Services return *AppError values (usually wrapped with fmt.Errorf and %w).
// The store shows AppError.Message to the user; anything that is not an
// AppError is treated as an internal failure and replaced with a generic message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel, one of the Err* values above
	Message string // human-readable, safe to show in the UI
	Field   string // optional: input field that caused the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation. key is whatever made the record
// collide (an id, an email address).
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports missing or bad credentials.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// UserMessage extracts the human-readable message from err if it carries an
// *AppError anywhere in its chain. Otherwise it returns fallback, so internal
// details (SQL, file paths) never reach the user.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// IsTyped reports whether err is a known application error. Typed errors are
// final: retrying the same request cannot change the outcome.
func IsTyped(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
