// Package agenterrors provides structured error classification for agent
// capability calls, driving the retry middleware's decisions.
package agenterrors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType represents categories of capability errors for retry logic.
type ErrorType int8

const (
	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors.
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error represents a classified capability error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Provider   string    // Which provider produced the error, if known
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("agent error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("agent error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried. Blocklist
// approach: everything is retryable unless explicitly non-retryable.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt:
		return false
	default:
		return true
	}
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithStatus creates a new classified error with an HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// Is checks if an error carries a specific classified type.
func Is(err error, errorType ErrorType) bool {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Type
	}
	return ErrorTypeUnknown
}

// ShouldRetry decides whether an arbitrary error warrants another attempt.
//
// Parent-context cancellation is never retried. DeadlineExceeded is: a
// per-request HTTP timeout wraps DeadlineExceeded while the parent context
// is still valid.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.IsRetryable()
	}

	// Unclassified errors get one retry by the policy's attempt budget.
	return true
}

var statusCodeRe = regexp.MustCompile(`\b([45]\d\d)\b`)

// extractStatusCode pulls an HTTP status code out of an error string, if
// the SDK embedded one.
func extractStatusCode(errStr string) int {
	m := statusCodeRe.FindStringSubmatch(errStr)
	if len(m) < 2 {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

// Classify maps an arbitrary SDK error to a classified *Error. Provider
// adapters share this instead of each reimplementing the mapping.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrorTypeTransient, Provider: provider, Err: err, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Type: ErrorTypeTransient, Provider: provider, Err: err, Message: "request canceled"}
	}

	errStr := err.Error()
	switch code := extractStatusCode(errStr); code {
	case 401, 403:
		return &Error{Type: ErrorTypeAuth, Provider: provider, StatusCode: code, Err: err, Message: "authentication failed - check API key"}
	case 429:
		return &Error{Type: ErrorTypeRateLimit, Provider: provider, StatusCode: code, Err: err, Message: "rate limit exceeded"}
	case 400:
		return &Error{Type: ErrorTypeBadPrompt, Provider: provider, StatusCode: code, Err: err, Message: "bad request - check prompt format and parameters"}
	case 500, 502, 503, 504:
		return &Error{Type: ErrorTypeTransient, Provider: provider, StatusCode: code, Err: err, Message: "server error"}
	}

	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "temporary"),
		strings.Contains(errStr, "EOF"),
		strings.Contains(lower, "reset"):
		return &Error{Type: ErrorTypeTransient, Provider: provider, Err: err, Message: "network or connection error"}
	case strings.Contains(lower, "rate"),
		strings.Contains(lower, "quota"):
		return &Error{Type: ErrorTypeRateLimit, Provider: provider, Err: err, Message: "rate limiting detected"}
	case strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "api key"):
		return &Error{Type: ErrorTypeAuth, Provider: provider, Err: err, Message: "authentication problem"}
	}

	return &Error{Type: ErrorTypeUnknown, Provider: provider, Err: err, Message: errStr}
}
