package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Authentication errors
	ErrCodeAuthExpired         ErrorCode = "AUTH_EXPIRED"
	ErrCodeAuthFailed          ErrorCode = "AUTH_FAILED"
	ErrCodeExchangeFailed      ErrorCode = "EXCHANGE_FAILED"
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"

	// Remote API errors
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeNameConflict     ErrorCode = "NAME_CONFLICT"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeTransportError   ErrorCode = "TRANSPORT_ERROR"

	// Document sync errors
	ErrCodeConflictDetected ErrorCode = "CONFLICT_DETECTED"
	ErrCodeLoadFailed       ErrorCode = "LOAD_FAILED"
	ErrCodeSaveFailed       ErrorCode = "SAVE_FAILED"
	ErrCodeSaveCancelled    ErrorCode = "SAVE_CANCELLED"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeUnknown      ErrorCode = "UNKNOWN"
)

// InkError represents a structured error with context
type InkError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *InkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *InkError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *InkError) WithDetail(key string, value interface{}) *InkError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *InkError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new InkError
func New(code ErrorCode, message string) *InkError {
	return &InkError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an InkError
func Wrap(err error, code ErrorCode, message string) *InkError {
	return &InkError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific InkError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	inkErr, ok := err.(*InkError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return inkErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	inkErr, ok := err.(*InkError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return inkErr.Code
}
