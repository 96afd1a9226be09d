package agenterrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetry_NilError(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
}

func TestShouldRetry_ContextCanceled(t *testing.T) {
	assert.False(t, ShouldRetry(context.Canceled))
	assert.False(t, ShouldRetry(fmt.Errorf("operation failed: %w", context.Canceled)))
}

func TestShouldRetry_DeadlineExceeded(t *testing.T) {
	// Per-request HTTP timeouts wrap DeadlineExceeded while the parent
	// context is still valid, so these should retry.
	assert.True(t, ShouldRetry(context.DeadlineExceeded))
	assert.True(t, ShouldRetry(fmt.Errorf("http call failed: %w", context.DeadlineExceeded)))
}

func TestShouldRetry_ClassifiedErrors(t *testing.T) {
	assert.False(t, ShouldRetry(&Error{Type: ErrorTypeAuth, Message: "invalid api key"}))
	assert.False(t, ShouldRetry(&Error{Type: ErrorTypeBadPrompt, Message: "prompt too long"}))
	assert.True(t, ShouldRetry(&Error{Type: ErrorTypeRateLimit}))
	assert.True(t, ShouldRetry(&Error{Type: ErrorTypeTransient}))
	assert.True(t, ShouldRetry(&Error{Type: ErrorTypeEmptyResponse}))
}

func TestShouldRetry_WrappedClassifiedError(t *testing.T) {
	inner := &Error{Type: ErrorTypeAuth}
	assert.False(t, ShouldRetry(fmt.Errorf("call failed: %w", inner)))
}

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		err  string
		want ErrorType
	}{
		{"request failed with status 401", ErrorTypeAuth},
		{"request failed with status 403", ErrorTypeAuth},
		{"request failed with status 429", ErrorTypeRateLimit},
		{"request failed with status 400", ErrorTypeBadPrompt},
		{"request failed with status 500", ErrorTypeTransient},
		{"request failed with status 503", ErrorTypeTransient},
	}
	for _, tt := range tests {
		got := Classify("anthropic", errors.New(tt.err))
		assert.Equal(t, tt.want, got.Type, tt.err)
	}
}

func TestClassify_TextPatterns(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, Classify("openai", errors.New("unexpected EOF")).Type)
	assert.Equal(t, ErrorTypeTransient, Classify("openai", errors.New("connection reset by peer")).Type)
	assert.Equal(t, ErrorTypeRateLimit, Classify("openai", errors.New("quota exhausted for project")).Type)
	assert.Equal(t, ErrorTypeAuth, Classify("openai", errors.New("unauthorized")).Type)
	assert.Equal(t, ErrorTypeUnknown, Classify("openai", errors.New("something odd")).Type)
}

func TestClassify_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, Classify("google", context.DeadlineExceeded).Type)
	assert.Equal(t, ErrorTypeTransient, Classify("google", context.Canceled).Type)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify("p", nil))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewErrorWithCause(ErrorTypeTransient, cause, "wrapped")
	assert.ErrorIs(t, err, cause)
}

func TestIsAndTypeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(ErrorTypeRateLimit, "slow down"))
	assert.True(t, Is(err, ErrorTypeRateLimit))
	assert.False(t, Is(err, ErrorTypeAuth))
	assert.Equal(t, ErrorTypeRateLimit, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}
