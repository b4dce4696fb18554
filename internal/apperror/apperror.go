// Package apperror defines the error taxonomy shared by every layer.
// Callers classify with errors.Is against the sentinels; the wrapping
// AppError carries a human-readable message that is safe to log but is
// never sent verbatim to a remote chat user.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrNotOwner          = errors.New("not owner")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnavailable       = errors.New("upstream unavailable")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

func NotOwner(message string) *AppError {
	return &AppError{
		Err:     ErrNotOwner,
		Message: message,
	}
}

// AlreadyClosed reports a done/reject attempt on a request that is no
// longer open. Reopening first is the only way out.
func AlreadyClosed(id int64) *AppError {
	return &AppError{
		Err:     ErrInvalidTransition,
		Message: fmt.Sprintf("request %d is already closed", id),
	}
}

func InvalidTransition(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidTransition,
		Message: message,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func Unavailable(message string, cause error) *AppError {
	if cause != nil {
		return &AppError{
			Err:     fmt.Errorf("%w: %w", ErrUnavailable, cause),
			Message: message,
		}
	}
	return &AppError{Err: ErrUnavailable, Message: message}
}
