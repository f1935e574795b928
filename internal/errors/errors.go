package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a clipd error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrParseFailed    ErrorCode = "PARSE_FAILED"    // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrIOFailed       ErrorCode = "IO_FAILED"       // 500
	ErrInvariant      ErrorCode = "INVARIANT"       // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrUnavailable    ErrorCode = "UNAVAILABLE"     // 503
)

// ClipError represents a structured error with code, status, and details.
type ClipError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ClipError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes a wrapped cause when one was recorded.
func (e *ClipError) Unwrap() error {
	if cause, ok := e.Details["cause"].(error); ok {
		return cause
	}
	return nil
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ClipError {
	return &ClipError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewParseFailed creates a 400 error for a command document that cannot be decoded.
func NewParseFailed(err error) *ClipError {
	msg := "malformed command document"
	if err != nil {
		msg = err.Error()
	}
	return &ClipError{
		Code:    ErrParseFailed,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource.
func NewNotFound(what string) *ClipError {
	return &ClipError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", what),
		Details: map[string]any{"what": what},
	}
}

// NewIOFailed creates a 500 error for a persistence or file operation failure.
func NewIOFailed(op string, err error) *ClipError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &ClipError{
		Code:    ErrIOFailed,
		Status:  500,
		Message: msg,
		Details: map[string]any{"op": op, "cause": err},
	}
}

// NewInvariant creates a 500 error for a detected internal invariant violation.
func NewInvariant(detail string) *ClipError {
	return &ClipError{
		Code:    ErrInvariant,
		Status:  500,
		Message: fmt.Sprintf("invariant violation: %s", detail),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ClipError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ClipError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewUnavailable creates a 503 error for an unreachable daemon.
func NewUnavailable(addr string, err error) *ClipError {
	msg := fmt.Sprintf("daemon unreachable at %s", addr)
	if err != nil {
		msg = fmt.Sprintf("daemon unreachable at %s: %v", addr, err)
	}
	return &ClipError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"addr": addr, "cause": err},
	}
}

// Is checks if an error is (or wraps) a ClipError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ClipError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
