package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/budget"
)

type captureRecorder struct {
	provider, model  string
	promptTokens     int64
	completionTokens int64
	cost             float64
	success          bool
	errorType        string
	calls            int
}

func (c *captureRecorder) ObserveRequest(provider, model string, promptTokens, completionTokens int64, cost float64, success bool, errorType string, duration time.Duration) {
	c.provider = provider
	c.model = model
	c.promptTokens = promptTokens
	c.completionTokens = completionTokens
	c.cost = cost
	c.success = success
	c.errorType = errorType
	c.calls++
}

func prices(provider, model string) (float64, float64, bool) {
	return 3.0, 15.0, true
}

func TestObserveSuccessWithCost(t *testing.T) {
	rec := &captureRecorder{}
	base := agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
		return agent.Done(agent.Response{
			Message: agent.NewAssistantMessage("ok"),
			Usage:   &budget.Usage{InputTokens: 1_000_000, OutputTokens: 2_000_000},
		}, nil)
	})

	cap := Middleware(rec, "anthropic", "claude-sonnet", prices, nil)(base)
	_, err := cap.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rec.calls)
	assert.True(t, rec.success)
	assert.Equal(t, int64(1_000_000), rec.promptTokens)
	assert.InDelta(t, 3.0+2*15.0, rec.cost, 0.001)
	assert.Empty(t, rec.errorType)
}

func TestObserveClassifiedError(t *testing.T) {
	rec := &captureRecorder{}
	base := agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
		return agent.Done(agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeRateLimit, "throttled"))
	})

	cap := Middleware(rec, "p", "m", nil, nil)(base)
	_, err := cap.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.Error(t, err)

	assert.False(t, rec.success)
	assert.Equal(t, "rate_limit", rec.errorType)
}

func TestObserveBudgetExceeded(t *testing.T) {
	rec := &captureRecorder{}
	base := agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
		return agent.Done(agent.Response{}, &budget.ExceededError{})
	})

	cap := Middleware(rec, "p", "m", nil, nil)(base)
	_, err := cap.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, "budget_exceeded", rec.errorType)
}

func TestNilRecorderUsesNop(t *testing.T) {
	base := agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
		return agent.Done(agent.Response{Message: agent.NewAssistantMessage("ok")}, nil)
	})
	cap := Middleware(nil, "p", "m", nil, nil)(base)
	_, err := cap.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.NoError(t, err)
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, "timeout", getErrorType(context.DeadlineExceeded))
	assert.Equal(t, "canceled", getErrorType(context.Canceled))
	assert.Equal(t, "unknown", getErrorType(errors.New("mystery")))
}
