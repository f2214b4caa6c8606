package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// InternalMessage is the only text a client ever sees for unexpected failures
const InternalMessage = "Internal server error"

// AppError represents an application error with HTTP status code and error code.
// Err holds the underlying cause; it is logged but never rendered.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap returns a copy of the error carrying cause
func (e *AppError) Wrap(cause error) *AppError {
	wrapped := *e
	wrapped.Err = cause
	return &wrapped
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(code string, message string) *AppError {
	return NewError(http.StatusBadRequest, code, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(code string, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// NewTooManyRequestsError creates a 429 Too Many Requests error
func NewTooManyRequestsError(code string, message string) *AppError {
	return NewError(http.StatusTooManyRequests, code, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// Internal collapses any failure into the generic 500 response
func Internal(cause error) *AppError {
	return NewInternalServerError("INTERNAL_ERROR", InternalMessage).Wrap(cause)
}

// FromError converts a standard error to an AppError.
// An AppError anywhere in the chain is returned as-is; anything else becomes Internal.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// GetStatusCode extracts the HTTP status code, returns 500 if err is not an AppError
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
