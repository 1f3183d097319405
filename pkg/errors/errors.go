// Package errors provides structured error types for livegraph.
//
// This package defines error codes and types that enable:
//   - Consistent handling of per-line and startup failures
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The ingest pipeline distinguishes between fatal and recoverable conditions:
//   - FILE_MISSING: the data file does not exist at startup (fatal)
//   - MALFORMED_RECORD: a line is not valid JSON (recoverable, line dropped)
//   - PROCESSING_ERROR: a decoded record has an unexpected shape (recoverable)
//   - INVALID_CONFIG: configuration failed validation (fatal)
//   - INTERNAL_ERROR: unexpected I/O or runtime failure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMalformedRecord, "invalid JSON message: %s", line)
//	if errors.Is(err, errors.ErrCodeMalformedRecord) {
//	    // drop the line and keep streaming
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileMissing, origErr, "data file %s does not exist", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Startup errors
	ErrCodeFileMissing   Code = "FILE_MISSING"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Per-record errors
	ErrCodeMalformedRecord Code = "MALFORMED_RECORD"
	ErrCodeProcessing      Code = "PROCESSING_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
	ErrCodeClosed   Code = "CLOSED"
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

// IsFatal reports whether err should abort the process rather than be
// contained to a single line.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeFileMissing, ErrCodeInvalidConfig, ErrCodeInvalidPath:
		return true
	}
	return false
}
