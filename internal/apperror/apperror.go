// Package apperror defines the error categories shared by repositories,
// services and the HTTP error handler.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
	ErrConstraint   = errors.New("constraint violation")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AppError carries an HTTP status and a stable code. Err keeps the cause for
// server-side logs and for errors.Is matching.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: resource + " not found", Err: ErrNotFound}
}

func Validation(message string, details interface{}) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message, Details: details, Err: ErrValidation}
}

func Conflict(code, message string) *AppError {
	return &AppError{Status: http.StatusConflict, Code: code, Message: message, Err: ErrConflict}
}

func BadRequest(code, message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: code, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: message, Err: ErrForbidden}
}

func Unauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message, Err: ErrUnauthorized}
}

// From maps any error to an AppError. Unknown errors become a generic 500.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return &AppError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "Resource not found", Err: err}
	case errors.Is(err, ErrDuplicate):
		return &AppError{Status: http.StatusConflict, Code: "DUPLICATE", Message: "Resource already exists", Err: err}
	case errors.Is(err, ErrConstraint):
		return &AppError{Status: http.StatusBadRequest, Code: "CONSTRAINT_VIOLATION", Message: "Referenced resource is invalid or still in use", Err: err}
	case errors.Is(err, ErrConflict):
		return &AppError{Status: http.StatusConflict, Code: "CONFLICT", Message: "Resource was modified concurrently", Err: err}
	case errors.Is(err, ErrValidation):
		return &AppError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: "Validation failed", Err: err}
	case errors.Is(err, ErrUnauthorized):
		return &AppError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "Authentication required", Err: err}
	case errors.Is(err, ErrForbidden):
		return &AppError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "Insufficient permissions", Err: err}
	}
	return &AppError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
}
