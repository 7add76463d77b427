package common

import (
	"errors"
	"fmt"
)

// ErrorKind tags an AppError so callers can dispatch on failure class
// instead of inspecting message text.
type ErrorKind string

const (
	KindConfig     ErrorKind = "CONFIG"      // fatal at startup
	KindBadRequest ErrorKind = "BAD_REQUEST" // malformed request, never retried
	KindTransient  ErrorKind = "TRANSIENT"   // retryable up to the attempt budget
	KindSchema     ErrorKind = "SCHEMA"      // model output failed shape validation
	KindNotFound   ErrorKind = "NOT_FOUND"   // unknown fingerprint
)

// AppError represents application-specific errors. StatusCode carries the
// upstream HTTP status when the error originated from a provider response;
// it is zero for transport-level and local failures.
type AppError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *AppError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.StatusCode, e.Message, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error constructors
func NewConfigError(message string) *AppError {
	return &AppError{Kind: KindConfig, Message: message}
}

func NewBadRequestError(statusCode int, message string) *AppError {
	return &AppError{Kind: KindBadRequest, StatusCode: statusCode, Message: message}
}

func NewTransientError(statusCode int, message string, cause error) *AppError {
	return &AppError{Kind: KindTransient, StatusCode: statusCode, Message: message, Cause: cause}
}

func NewSchemaError(message string, cause error) *AppError {
	return &AppError{Kind: KindSchema, Message: message, Cause: cause}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// KindOf extracts the kind from err, or "" when err carries no AppError.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsSchema reports whether err is a shape-validation failure.
func IsSchema(err error) bool {
	return KindOf(err) == KindSchema
}

// IsNotFound reports whether err indicates an unknown fingerprint.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// RetryableStatus classifies a provider HTTP status. 429, 408 and 5xx are
// transient; every other non-2xx status signals a malformed request.
func RetryableStatus(status int) bool {
	return status == 429 || status == 408 || status >= 500
}
