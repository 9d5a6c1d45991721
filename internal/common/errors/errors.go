// Package errors provides standardized error handling for the reminder engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeTemplateRenderError ErrorCode = "TEMPLATE_RENDER_ERROR"
	ErrCodeChannelError        ErrorCode = "CHANNEL_ERROR"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured application error.
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable validation error for a single field.
func NewValidationError(field, details string) *Error {
	return &Error{
		Code:      ErrCodeValidation,
		Message:   fmt.Sprintf("validation failed for %s", field),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError creates a non-retryable conflict error (illegal state transition,
// duplicate default template, delete of a terminal reminder, claim race).
func NewConflictError(message, details string) *Error {
	return &Error{
		Code:      ErrCodeConflict,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable not-found error.
func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateRenderError creates a non-retryable render error. Unresolved
// variables are not transient: retrying cannot make a missing value appear.
func NewTemplateRenderError(details string) *Error {
	return &Error{
		Code:      ErrCodeTemplateRenderError,
		Message:   "template rendering failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelError creates a channel-send error. Transient failures (network,
// provider 5xx, timeout) are retryable; permanent ones (invalid address) are not.
func NewChannelError(channel string, transient bool, err error) *Error {
	return &Error{
		Code:      ErrCodeChannelError,
		Message:   fmt.Sprintf("%s delivery failed", channel),
		Details:   err.Error(),
		Retryable: transient,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *Error {
	return &Error{
		Code:      ErrCodeInternal,
		Message:   "internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsError normalizes any error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternalError(err)
}

// IsRetryable reports whether a failed operation may be retried.
func IsRetryable(err error) bool {
	return AsError(err).Retryable
}

// IsCode checks the code of an error, tolerating wrapping.
func IsCode(err error, code ErrorCode) bool {
	return AsError(err).Code == code
}
