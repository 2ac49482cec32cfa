package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, shared.ErrNotFound) for a not-found error with a custom message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidState          = "INVALID_STATE"
	CodeComputationFailed     = "COMPUTATION_FAILED"
	CodeConcurrentComputation = "CONCURRENT_COMPUTATION"
	CodeQueueUnavailable      = "QUEUE_UNAVAILABLE"

	// CodeConcurrentModification is returned when a versioned row changed
	// between read and write
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrComputationFailed      = NewDomainError(CodeComputationFailed, "Bill computation failed")
	ErrConcurrentComputation  = NewDomainError(CodeConcurrentComputation, "A computation for this house and period is already in progress")
	ErrQueueUnavailable       = NewDomainError(CodeQueueUnavailable, "Billing queue is not accepting jobs")
	ErrConcurrentModification = NewDomainError(CodeConcurrentModification, "The resource was modified concurrently")
)

// NotFoundf builds a NOT_FOUND error
func NotFoundf(format string, args ...any) *DomainError {
	return NewDomainErrorf(CodeNotFound, format, args...)
}

// InvalidInputf builds an INVALID_INPUT error
func InvalidInputf(format string, args ...any) *DomainError {
	return NewDomainErrorf(CodeInvalidInput, format, args...)
}

// WrapComputationFailure turns an unexpected error into a COMPUTATION_FAILED
// domain error. Domain errors pass through unchanged.
func WrapComputationFailure(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	return &DomainError{
		Code:    CodeComputationFailed,
		Message: err.Error(),
		cause:   err,
	}
}

// IsNotFound reports whether err carries the NOT_FOUND code
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err carries the INVALID_INPUT code
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// CodeOf returns the domain error code of err, or an empty string
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
