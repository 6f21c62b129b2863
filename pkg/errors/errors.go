// Package errors provides structured error types for provgraph.
//
// Errors carry a machine-readable [Code] so that callers can separate the
// three failure families of the visualization core:
//
//   - MISSING_REFERENCE: a dependent item points at something that does not
//     exist. Layout and rendering recover locally by skipping the item.
//   - NETWORK_ERROR, TIMEOUT, NOT_FOUND: asynchronous I/O failures. These are
//     converted into missing optional data at the fetch boundary.
//   - INVARIANT_VIOLATION, UNKNOWN_PHASE, UNKNOWN_STEP: data-shape contract
//     violations. These propagate to the top-level graph construction call.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownPhase, "phase %q has no color token", phase)
//	if errors.Is(err, errors.ErrCodeUnknownPhase) {
//	    // surface as a load failure
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Graph shape errors
	ErrCodeMissingReference  Code = "MISSING_REFERENCE"
	ErrCodeInvariantViolated Code = "INVARIANT_VIOLATION"
	ErrCodeUnknownPhase      Code = "UNKNOWN_PHASE"
	ErrCodeUnknownStep       Code = "UNKNOWN_STEP"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsContractViolation reports whether err signals a data-shape contract
// violation that must fail loudly rather than be skipped.
func IsContractViolation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvariantViolated, ErrCodeUnknownPhase, ErrCodeUnknownStep:
		return true
	}
	return false
}
