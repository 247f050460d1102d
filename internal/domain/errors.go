package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures so callers can decide policy.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeTransport   ErrorType = "TRANSPORT"
	ErrorTypeData        ErrorType = "DATA"
	ErrorTypeGeneration  ErrorType = "GENERATION"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// AppError is the typed error returned across package boundaries.
type AppError struct {
	Type       ErrorType
	Message    string
	Cause      error
	HTTPStatus int
	Retryable  bool
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewValidationError reports bad caller input.
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// NewTransportError reports a connectivity, rate-limit or upstream server failure.
// Transport errors are retryable.
func NewTransportError(message string) *AppError {
	return &AppError{Type: ErrorTypeTransport, Message: message, HTTPStatus: http.StatusBadGateway, Retryable: true}
}

// NewDataError reports a malformed upstream payload.
func NewDataError(message string) *AppError {
	return &AppError{Type: ErrorTypeData, Message: message, HTTPStatus: http.StatusBadGateway}
}

// NewGenerationError reports a non-transient text generation failure.
func NewGenerationError(message string) *AppError {
	return &AppError{Type: ErrorTypeGeneration, Message: message, HTTPStatus: http.StatusBadGateway}
}

// NewUnavailableError reports an upstream short-circuited by its breaker.
func NewUnavailableError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    fmt.Sprintf("service '%s' is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewInternalError reports a bug or unexpected state.
func NewInternalError(message string) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, HTTPStatus: http.StatusInternalServerError}
}

// IsType reports whether err is an AppError of type t anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// HTTPStatus maps err to a response status, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
