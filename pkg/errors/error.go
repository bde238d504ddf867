// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, configuration and orders
//   - Resource errors (200-299): Orders, positions or instruments that do not exist
//   - Connection errors (300-399): NotConnected, Disconnected, Timeout, ProtocolError
//   - Authentication errors (400-499): AuthFailed and its VerificationRequired sub-kind
//   - Broker errors (500-599): Unsupported capability, Rejected request, Upstream failure
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeNotConnected, "gateway is not connected")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeRejected, "order %s rejected: %s", id, reason)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeUpstream, "failed to fetch positions", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeTimeout) { ... }
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

// IsAuthFailure reports whether err is an AuthFailed error or its
// VerificationRequired sub-kind.
func IsAuthFailure(err error) bool {
	code := GetCode(err)

	return code == ErrCodeAuthFailed || code == ErrCodeVerificationRequired
}

// IsRetryable reports whether the failure may be recovered by reconnecting
// and replaying an idempotent data request. Orders are never replayed.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case ErrCodeTimeout, ErrCodeDisconnected:
		return true
	default:
		return false
	}
}

// IsCallerDecision reports whether the failure needs a decision from the caller
// rather than a silent retry.
func IsCallerDecision(err error) bool {
	switch GetCode(err) {
	case ErrCodeRejected, ErrCodeUnsupported, ErrCodeAuthFailed, ErrCodeVerificationRequired:
		return true
	default:
		return false
	}
}

// Unsupported returns the error every adapter uses for a capability it does not offer.
func Unsupported(brokerID, operation string) *Error {
	return Newf(ErrCodeUnsupported, "%s does not support %s", brokerID, operation)
}

// NotConnected returns the error used when an adapter is asked to work before Connect.
func NotConnected(brokerID string) *Error {
	return Newf(ErrCodeNotConnected, "%s is not connected", brokerID)
}
