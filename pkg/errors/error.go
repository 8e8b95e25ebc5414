// Package errors provides coded errors shared by the broker adapters, the order
// manager and the runner.
//
// Error codes are grouped by range:
//   - General errors (1-99)
//   - Validation errors (100-199): malformed orders, bad configuration, missing credentials
//   - Data/Feed errors (200-299): feed loading, queries, end of feed
//   - Strategy errors (400-499): signal generation failures
//   - Broker errors (500-599): order failures and connectivity problems
//   - Runner errors (600-699)
//   - Callback errors (800-899)
//
// Business rejections (insufficient cash, venue refusal) are not errors: they are
// returned as orders with a REJECTED status.
//
// Usage:
//
//	err := errors.New(errors.ErrCodeInvalidArgument, "quantity must be positive")
//	err := errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to fetch position", cause)
//	if errors.IsConnectivityError(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// HasCodeInChain reports whether any *Error in err's chain carries code.
// GetCode only looks at the outermost coded error.
func HasCodeInChain(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code == code {
			return true
		}

		err = e.Cause
	}

	return false
}

// IsValidationError reports whether err carries a validation code.
func IsValidationError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.IsValidation()
	}

	return IsInsufficientDataError(err)
}

// IsConnectivityError reports whether err, or any coded error it wraps,
// describes a broker transport failure.
func IsConnectivityError(err error) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code.IsConnectivity() {
			return true
		}

		err = e.Cause
	}

	return false
}

// Join aggregates errors, dropping nil values. It returns nil when every error is nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// InsufficientDataError is returned when a strategy receives fewer bars than its
// indicators need to warm up.
type InsufficientDataError struct {
	Required int    // Minimum data points required
	Actual   int    // Actual data points available
	Symbol   string // Optional: symbol context
	Message  string // Human-readable message
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
// It uses errors.As to check the error chain.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
