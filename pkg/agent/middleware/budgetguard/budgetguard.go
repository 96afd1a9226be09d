// Package budgetguard enforces a run's budget at the capability boundary.
//
// The check is pre-flight only: a crossed ceiling blocks the next call from
// starting but never interrupts a call already in flight.
package budgetguard

import (
	"context"
	"strings"
	"time"

	"agora/pkg/agent"
	"agora/pkg/budget"
)

// Middleware wraps a capability with budget accounting. The tracker is
// taken from the context (see budget.NewContext); calls without one pass
// through untouched.
//
// After each successful call the turn's usage and duration are recorded.
// When the provider reports no usage, the estimator fills in an
// approximation; a nil estimator records only duration.
func Middleware(provider, model string, estimator *budget.Estimator) agent.Middleware {
	return func(next agent.Capability) agent.Capability {
		return agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
			tracker := budget.FromContext(ctx)
			if tracker == nil {
				return next.Start(ctx, req)
			}

			if err := tracker.Check(); err != nil {
				return agent.Done(agent.Response{}, err)
			}

			return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
				start := time.Now()
				h := next.Start(ctx, req)
				for ev := range h.Events() {
					push(ev)
				}
				resp, err := h.Wait(ctx)
				tracker.RecordDuration(time.Since(start))
				if err != nil {
					return agent.Response{}, err
				}

				usage := resp.Usage
				if usage == nil && estimator != nil {
					u := estimator.EstimateUsage(promptText(req), resp.Message.Content)
					usage = &u
				}
				if usage != nil {
					tracker.RecordTokens(*usage, provider, model)
				}
				return resp, nil
			})
		})
	}
}

func promptText(req agent.Request) string {
	var b strings.Builder
	for _, msg := range req.Messages {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
