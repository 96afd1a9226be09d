package retry

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
)

// flaky fails a fixed number of times before succeeding.
type flaky struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (f *flaky) Start(ctx context.Context, req agent.Request) agent.Handle {
	n := f.calls.Add(1)
	if n <= f.failures {
		return agent.Done(agent.Response{}, f.err)
	}
	return agent.Done(agent.Response{Message: agent.NewAssistantMessage("ok")}, nil)
}

func TestMiddleware_RetriesTransientErrors(t *testing.T) {
	base := &flaky{failures: 2, err: agenterrors.NewError(agenterrors.ErrorTypeTransient, "flap")}
	c := agent.Chain(base, Middleware(Policy{MaxAttempts: 3}))

	resp, err := c.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
	assert.Equal(t, int32(3), base.calls.Load())
}

func TestMiddleware_ExhaustsAttempts(t *testing.T) {
	base := &flaky{failures: 10, err: agenterrors.NewError(agenterrors.ErrorTypeRateLimit, "slow down")}
	c := agent.Chain(base, Middleware(Policy{MaxAttempts: 3}))

	_, err := c.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.ErrorTypeRateLimit))
	assert.Equal(t, int32(3), base.calls.Load())
}

func TestMiddleware_NoRetryOnAuthError(t *testing.T) {
	base := &flaky{failures: 10, err: agenterrors.NewError(agenterrors.ErrorTypeAuth, "bad key")}
	c := agent.Chain(base, Middleware(Policy{MaxAttempts: 5}))

	_, err := c.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), base.calls.Load())
}

func TestMiddleware_SingleAttemptFloor(t *testing.T) {
	base := &flaky{failures: 0}
	c := agent.Chain(base, Middleware(Policy{MaxAttempts: 0}))

	_, err := c.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), base.calls.Load())
}
