package errors

import (
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "VALIDATION"
	ErrorTypeNotFound           ErrorType = "NOT_FOUND"
	ErrorTypeNoMessages         ErrorType = "NO_MESSAGES"
	ErrorTypeStorageUnavailable ErrorType = "STORAGE_UNAVAILABLE"
	ErrorTypeInvalidState       ErrorType = "INVALID_STATE"
	ErrorTypeAlreadyCommitted   ErrorType = "ALREADY_COMMITTED"
	ErrorTypeGenerator          ErrorType = "GENERATOR"
	ErrorTypeInternal           ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewNoMessages creates an error for consolidating a session with no live messages
func NewNoMessages(message string) error {
	return &AppError{Type: ErrorTypeNoMessages, Message: message}
}

// NewStorageUnavailable creates an error for a durable-write path that is unreachable
func NewStorageUnavailable(message string, err error) error {
	return &AppError{Type: ErrorTypeStorageUnavailable, Message: message, Err: err}
}

// NewInvalidState creates an error for an operation not valid in the current state
func NewInvalidState(message string) error {
	return &AppError{Type: ErrorTypeInvalidState, Message: message}
}

// NewAlreadyCommitted creates an error for a repeated commit
func NewAlreadyCommitted(message string) error {
	return &AppError{Type: ErrorTypeAlreadyCommitted, Message: message}
}

// NewGenerator creates an error for an external text-completion failure
func NewGenerator(message string, err error) error {
	return &AppError{Type: ErrorTypeGenerator, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsNoMessages checks if an error signals an empty consolidation source
func IsNoMessages(err error) bool { return isType(err, ErrorTypeNoMessages) }

// IsStorageUnavailable checks if an error signals an unreachable durable store
func IsStorageUnavailable(err error) bool { return isType(err, ErrorTypeStorageUnavailable) }

// IsInvalidState checks if an error is an invalid state error
func IsInvalidState(err error) bool { return isType(err, ErrorTypeInvalidState) }

// IsAlreadyCommitted checks if an error is a repeated commit error
func IsAlreadyCommitted(err error) bool { return isType(err, ErrorTypeAlreadyCommitted) }

// IsGenerator checks if an error came from the text-completion collaborator
func IsGenerator(err error) bool { return isType(err, ErrorTypeGenerator) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }
