package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagging middleware appends its label to the response content on the way
// out, so the outermost middleware's label lands last.
func tagging(label string) Middleware {
	return func(next Capability) Capability {
		return CapabilityFunc(func(ctx context.Context, req Request) Handle {
			return Go(ctx, func(ctx context.Context, push Push) (Response, error) {
				resp, err := next.Start(ctx, req).Wait(ctx)
				if err != nil {
					return Response{}, err
				}
				resp.Message.Content += label
				return resp, nil
			})
		})
	}
}

func TestChainOrder(t *testing.T) {
	base := CapabilityFunc(func(ctx context.Context, req Request) Handle {
		return Done(Response{Message: NewAssistantMessage("base")}, nil)
	})

	chained := Chain(base, tagging("-outer"), tagging("-inner"))
	resp, err := chained.Start(context.Background(), Request{}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "base-inner-outer", resp.Message.Content)
}

func TestChainEmpty(t *testing.T) {
	base := CapabilityFunc(func(ctx context.Context, req Request) Handle {
		return Done(Response{Message: NewAssistantMessage("untouched")}, nil)
	})

	resp, err := Chain(base).Start(context.Background(), Request{}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "untouched", resp.Message.Content)
}

func TestDoneHandleSettlesImmediately(t *testing.T) {
	h := Done(Response{Message: NewAssistantMessage("ready")}, nil)

	// events channel closes without ever producing
	for range h.Events() {
		t.Fatal("unexpected event from a settled handle")
	}
	resp, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", resp.Message.Content)
}
