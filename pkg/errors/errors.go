package errors

import (
	"fmt"
)

// ErrorCode identifies a class of provider failure. Backend-specific errors
// are mapped into these codes at the adapter boundary; no backend error type
// crosses into the facade.
type ErrorCode string

const (
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeMediaDevice        ErrorCode = "MEDIA_DEVICE_ERROR"
	ErrCodeMessageTooLarge    ErrorCode = "MESSAGE_TOO_LARGE"
	ErrCodeMessageSendFailed  ErrorCode = "MESSAGE_SEND_FAILED"
	ErrCodeParticipant        ErrorCode = "PARTICIPANT_ERROR"
	ErrCodeTrackNotFound      ErrorCode = "TRACK_NOT_FOUND"
	ErrCodeElementNotFound    ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeUnknown            ErrorCode = "UNKNOWN_ERROR"
)

// ProviderError represents a provider failure with code and context
type ProviderError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
	Context   map[string]interface{}
}

// Error implements error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *ProviderError) WithContext(key string, value interface{}) *ProviderError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewProviderError creates a new provider error
func NewProviderError(code ErrorCode, message string, retryable bool) *ProviderError {
	return &ProviderError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a provider error
func WrapError(err error, code ErrorCode, message string, retryable bool) *ProviderError {
	return &ProviderError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Cause:     err,
		Context:   make(map[string]interface{}),
	}
}

// Common error constructors. Connection and send failures are transient and
// retryable; credential, size and lookup failures are permanent.

func NewConnectionFailedError(message string, cause error) *ProviderError {
	return WrapError(cause, ErrCodeConnectionFailed, message, true)
}

func NewInvalidCredentialsError(message string) *ProviderError {
	return NewProviderError(ErrCodeInvalidCredentials, message, false)
}

func NewMediaDeviceError(message string, cause error) *ProviderError {
	return WrapError(cause, ErrCodeMediaDevice, message, false)
}

func NewMessageTooLargeError(message string) *ProviderError {
	return NewProviderError(ErrCodeMessageTooLarge, message, false)
}

func NewMessageSendFailedError(message string, cause error) *ProviderError {
	return WrapError(cause, ErrCodeMessageSendFailed, message, true)
}

func NewParticipantError(message string, cause error) *ProviderError {
	return WrapError(cause, ErrCodeParticipant, message, false)
}

func NewTrackNotFoundError(kind string) *ProviderError {
	return NewProviderError(ErrCodeTrackNotFound, fmt.Sprintf("%s track not found", kind), false)
}

func NewElementNotFoundError(elementID string) *ProviderError {
	return NewProviderError(ErrCodeElementNotFound, fmt.Sprintf("element %q not found", elementID), false)
}

func NewUnknownError(cause error) *ProviderError {
	return WrapError(cause, ErrCodeUnknown, "unrecognized backend fault", false)
}

// IsProviderError checks if error is a ProviderError
func IsProviderError(err error) bool {
	_, ok := err.(*ProviderError)
	return ok
}

// GetProviderError extracts a ProviderError from the error chain
func GetProviderError(err error) *ProviderError {
	if err == nil {
		return nil
	}

	if provErr, ok := err.(*ProviderError); ok {
		return provErr
	}

	type unwrapper interface {
		Unwrap() error
	}

	if u, ok := err.(unwrapper); ok {
		return GetProviderError(u.Unwrap())
	}

	return nil
}

// IsRetryable reports whether the error is worth retrying. Errors that carry
// no provider code are treated as transient faults.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if provErr := GetProviderError(err); provErr != nil {
		return provErr.Retryable
	}
	return true
}
