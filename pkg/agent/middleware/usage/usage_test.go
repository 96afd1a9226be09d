package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/agent"
	"agora/pkg/budget"
	"agora/pkg/event"
)

type recordingSink struct {
	turns []budget.Usage
	err   error
}

func (s *recordingSink) RecordTurn(provider, model string, u budget.Usage) error {
	s.turns = append(s.turns, u)
	return s.err
}

func reporting(u *budget.Usage) agent.Capability {
	return agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
		return agent.Done(agent.Response{Message: agent.NewAssistantMessage("ok"), Usage: u}, nil)
	})
}

func TestUsageForwardedToSink(t *testing.T) {
	sink := &recordingSink{}
	cap := Middleware(sink, "anthropic", "claude-sonnet", nil)(reporting(&budget.Usage{InputTokens: 10, OutputTokens: 5}))

	h := cap.Start(context.Background(), agent.Request{})
	var reports int
	for ev := range h.Events() {
		if ev.EventType() == event.TypeUsage {
			reports++
		}
	}
	_, err := h.Wait(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.turns, 1)
	assert.Equal(t, int64(10), sink.turns[0].InputTokens)
	assert.Equal(t, 1, reports)
}

func TestSinkFailureSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("db locked")}
	cap := Middleware(sink, "p", "m", nil)(reporting(&budget.Usage{InputTokens: 1}))

	resp, err := cap.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
}

func TestNoUsageNoRecord(t *testing.T) {
	sink := &recordingSink{}
	cap := Middleware(sink, "p", "m", nil)(reporting(nil))

	_, err := cap.Start(context.Background(), agent.Request{}).Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.turns)
}
