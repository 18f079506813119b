package delivery

import (
	"errors"
	"fmt"
)

var (
	ErrAttemptNotFound   = errors.New("delivery attempt not found")
	ErrDuplicateAttempt  = errors.New("delivery attempt already exists")
	ErrUnknownChannel    = errors.New("no provider registered for channel")
	ErrInvalidConfig     = errors.New("invalid provider configuration")
	ErrProviderExhausted = errors.New("provider marked unavailable after repeated failures")
)

// ErrorKind classifies a delivery failure so retry logic can branch on
// data instead of error types.
type ErrorKind string

const (
	// KindValidation covers bad recipient format and oversize content.
	// Never retried; no provider quota is consumed.
	KindValidation ErrorKind = "validation"
	// KindTransient covers timeouts, provider 5xx and rate limiting.
	// Retried with backoff until attempts are exhausted.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers failures that will never succeed, such as a
	// number rejected by the carrier or an unsubscribed recipient.
	KindPermanent ErrorKind = "permanent"
	// KindConfiguration covers missing credentials or an unavailable
	// provider. The orchestrator refuses to attempt the call.
	KindConfiguration ErrorKind = "configuration"
)

// Error is a typed delivery failure. It preserves the provider error
// code and the classification the retry scheduler branches on.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("delivery %s error [%s]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("delivery %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a later attempt might succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransient
}

// NewValidationError creates a validation failure with the given code.
func NewValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NewTransientError wraps a recoverable provider failure.
func NewTransientError(code, message string, cause error) *Error {
	return &Error{Kind: KindTransient, Code: code, Message: message, Cause: cause}
}

// NewPermanentError wraps a failure that will never succeed on retry.
func NewPermanentError(code, message string, cause error) *Error {
	return &Error{Kind: KindPermanent, Code: code, Message: message, Cause: cause}
}

// NewConfigurationError reports a provider that cannot be called at all.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Code: "CONFIGURATION_ERROR", Message: message}
}

// AsError extracts a typed *Error from an error chain. Untyped errors
// are conservatively classified as transient so they stay retryable.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Kind: KindTransient, Code: "UNCLASSIFIED", Message: err.Error(), Cause: err}
}
