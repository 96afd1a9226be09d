// Package usage forwards per-turn token usage to a session collaborator,
// typically the sqlite-backed session store.
package usage

import (
	"context"
	"time"

	"agora/pkg/agent"
	"agora/pkg/budget"
	"agora/pkg/event"
	"agora/pkg/logx"
)

// Sink receives one usage record per completed agent turn.
type Sink interface {
	RecordTurn(provider, model string, u budget.Usage) error
}

// Middleware reports each successful turn's usage to the sink and emits a
// UsageReport event on the call's stream. Sink failures are logged, never
// propagated: usage accounting must not break a pattern run.
func Middleware(sink Sink, provider, model string, logger *logx.Logger) agent.Middleware {
	if logger == nil {
		logger = logx.NopLogger()
	}

	return func(next agent.Capability) agent.Capability {
		return agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
			return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
				h := next.Start(ctx, req)
				for ev := range h.Events() {
					push(ev)
				}
				resp, err := h.Wait(ctx)
				if err != nil {
					return agent.Response{}, err
				}

				if resp.Usage != nil {
					push(event.UsageReport{
						Provider: provider,
						Model:    model,
						Usage:    *resp.Usage,
						Time:     time.Now(),
					})
					if sink != nil {
						if recErr := sink.RecordTurn(provider, model, *resp.Usage); recErr != nil {
							logger.Warn("failed to record turn usage: %v", recErr)
						}
					}
				}
				return resp, nil
			})
		})
	}
}
