// Package apperror defines the error taxonomy shared by the stores, the
// services and the HTTP edge.
//
// Every kind is a sentinel error. AppError carries the sentinel plus a
// client-safe message, so callers branch with errors.Is and the HTTP layer
// maps kinds to status codes in one place (internal/response).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrInternal     = errors.New("internal error")
)

type AppError struct {
	Err     error             // sentinel kind, possibly joined with a cause
	Message string            // Human-readable error message
	Field   string            // Optional: field causing the error
	Details map[string]string // Optional: per-field messages from the validation gate
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

// NotFoundMessage is NotFound for lookups that are not keyed by id
// (e.g. a user looked up by email).
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationWithDetails reports several invalid fields at once.
func ValidationWithDetails(message string, details map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Details: details,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMessage is Conflict with a caller-chosen message.
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// Unauthorized covers missing, malformed, expired or revoked tokens and bad
// credentials. Mapped to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
	}
}

// Internal wraps an unexpected failure (usually from the store). The cause
// stays reachable through errors.Is/As for logs and tests, but Message is
// generic so nothing leaks to clients.
func Internal(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %w", ErrInternal, op, cause),
		Message: "An internal error occurred",
	}
}

// IsKind reports whether err carries any of the taxonomy sentinels. Errors
// without a kind are unexpected and get wrapped with Internal by services.
func IsKind(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
