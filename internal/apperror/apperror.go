package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
	ErrReadOnly   = errors.New("read only")
	ErrConflict   = errors.New("conflict")
	ErrEmpty      = errors.New("empty")
)

// AppError carries a sentinel for errors.Is dispatch plus a message the
// HTTP layer can surface as-is.
type AppError struct {
	Err     error
	Message string
	Field   string
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
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// ReadOnly marks mutations against a soft-deleted whiteboard.
func ReadOnly(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrReadOnly,
		Message: fmt.Sprintf("%s %v has been deleted and is read only", resource, id),
	}
}

// Empty marks operations that need at least one element (export).
func Empty(message string) *AppError {
	return &AppError{
		Err:     ErrEmpty,
		Message: message,
	}
}

func Conflict(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %v", resource, id),
	}
}
