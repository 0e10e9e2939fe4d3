package errors

import (
	"fmt"
)

// AuthExpired creates an expired-credential error. Any call path seeing this
// must tear down the session rather than retry.
func AuthExpired() *InkError {
	return New(ErrCodeAuthExpired, "access token is invalid or expired")
}

// AuthFailed creates an authentication failure error
func AuthFailed(reason string) *InkError {
	return New(ErrCodeAuthFailed, fmt.Sprintf("authentication failed: %s", reason)).
		WithDetail("reason", reason)
}

// ExchangeFailed creates an authorization-code exchange failure error
func ExchangeFailed(err error) *InkError {
	return Wrap(err, ErrCodeExchangeFailed, "could not exchange authorization code for a token")
}

// ProviderUnavailable creates a provider unreachable error
func ProviderUnavailable(err error) *InkError {
	return Wrap(err, ErrCodeProviderUnavailable, "identity provider is unreachable")
}

// Unauthorized creates a missing-scope error
func Unauthorized(scope string) *InkError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("current session lacks the '%s' scope", scope)).
		WithDetail("scope", scope)
}

// NotFound creates a resource not found error
func NotFound(resource string) *InkError {
	return New(ErrCodeNotFound, fmt.Sprintf("resource not found: %s", resource)).
		WithDetail("resource", resource)
}

// NameConflict creates a repository name conflict error
func NameConflict(name string) *InkError {
	return New(ErrCodeNameConflict, fmt.Sprintf("a repository named '%s' already exists", name)).
		WithDetail("name", name)
}

// ValidationFailed creates a validation error carrying the provider's message
func ValidationFailed(message string) *InkError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("request rejected by provider: %s", message))
}

// RateLimited creates a rate-limit error. reset is the provider's
// X-RateLimit-Reset value, a Unix timestamp, or zero if unknown.
func RateLimited(reset int64) *InkError {
	return New(ErrCodeRateLimited, "API rate limit exceeded").
		WithDetail("reset", reset)
}

// TransportError creates a network-level failure error
func TransportError(err error) *InkError {
	return Wrap(err, ErrCodeTransportError, "network request failed")
}

// ConflictDetected creates an optimistic-concurrency conflict error.
// Never auto-resolved; the caller decides between reload and overwrite.
func ConflictDetected(path string) *InkError {
	return New(ErrCodeConflictDetected,
		fmt.Sprintf("'%s' was modified remotely since it was loaded", path)).
		WithDetail("path", path)
}

// LoadFailed creates a document load failure error
func LoadFailed(path string, err error) *InkError {
	return Wrap(err, ErrCodeLoadFailed, fmt.Sprintf("failed to load '%s'", path)).
		WithDetail("path", path)
}

// SaveFailed creates a document save failure error
func SaveFailed(path string, err error) *InkError {
	return Wrap(err, ErrCodeSaveFailed, fmt.Sprintf("failed to save '%s'", path)).
		WithDetail("path", path)
}

// SaveCancelled creates a user-cancelled save error
func SaveCancelled() *InkError {
	return New(ErrCodeSaveCancelled, "save cancelled: no destination path provided")
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *InkError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *InkError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// Unknown wraps an unclassified provider response
func Unknown(status int, body string) *InkError {
	return New(ErrCodeUnknown, fmt.Sprintf("unexpected provider response (HTTP %d)", status)).
		WithDetail("status", status).
		WithDetail("body", body)
}
