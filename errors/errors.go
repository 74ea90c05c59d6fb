// Package errors provides unified error handling for the pipeline toolkit.
// It implements structured error types with machine-readable codes and
// retryable detection, while preserving the root cause through Unwrap.
package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// TypeMismatch creates an AppError for a declared result kind that conflicts
// with the actual input type.
func TypeMismatch(want, got string) *AppError {
	return &AppError{
		Code: ErrCodeTypeMismatch, Message: fmt.Sprintf("%s expected but got %s", want, got),
		Details: map[string]any{"want": want, "got": got},
	}
}

// UnsupportedInput creates an AppError for an input that cannot be
// partitioned.
func UnsupportedInput(got string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedInput, Message: fmt.Sprintf("input must be a slice, array or map, but is %s", got),
		Details: map[string]any{"got": got},
	}
}

// WorkerFailure creates an AppError wrapping an error raised inside a worker.
// The original error stays reachable through Unwrap and errors.Is.
func WorkerFailure(partition int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeWorkerFailure, Message: fmt.Sprintf("worker for partition %d failed", partition),
		Details: map[string]any{"partition": partition},
		Cause:   cause,
	}
}

// Timeout creates an AppError for an operation that exceeded its deadline.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s took too long", operation),
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// TargetNotFound creates an AppError for a registry key with no builder.
func TargetNotFound(key string) *AppError {
	return &AppError{
		Code: ErrCodeTargetNotFound, Message: fmt.Sprintf("no builder registered for target %q", key),
		Details: map[string]any{"target": key},
	}
}

// InvalidInput creates an AppError for invalid input.
func InvalidInput(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: reason,
	}
}

// Internal creates an AppError for an unexpected internal failure.
func Internal(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: reason,
	}
}

// ExternalService creates an AppError for a failed call to an external
// service.
func ExternalService(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("call to %s failed", service),
		Retryable: true,
		Details:   map[string]any{"service": service},
		Cause:     cause,
	}
}

// --- Inspection helpers ---

// AsAppError extracts an *AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or ErrCodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsRetryable reports whether the error is marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
