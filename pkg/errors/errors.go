package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an error for handling policy decisions.
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"

	// Boundary errors
	ErrorTypeNetwork  ErrorType = "NETWORK"
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// Everything else
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError is the error type carried across component boundaries.
// Network and external errors are retryable by policy: a failed save
// leaves the store dirty so the next trigger retries.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
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

// Retryable reports whether retrying the operation later can succeed.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypeNetwork || e.Type == ErrorTypeExternal
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFoundError creates a not found error for the named resource
func NewNotFoundError(resource string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: resource + " not found"}
}

// NewNetworkError creates a transport-level error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Message: message, Cause: err}
}

// NewExternalError creates an error reported by an external collaborator
func NewExternalError(service string, err error) *AppError {
	return &AppError{Type: ErrorTypeExternal, Message: fmt.Sprintf("service %q failed", service), Cause: err}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message}
}

// GetAppError extracts an AppError from an error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsNetwork checks if an error is a transport failure
func IsNetwork(err error) bool {
	return IsType(err, ErrorTypeNetwork)
}

// IsRetryable reports whether the error chain allows a later retry.
func IsRetryable(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Retryable()
}
