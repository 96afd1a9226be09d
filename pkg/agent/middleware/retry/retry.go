// Package retry provides bounded-retry middleware for agent capabilities.
//
// Retry is strictly a boundary concern: patterns never retry internally,
// they see only the final outcome of the wrapped capability.
package retry

import (
	"context"
	"fmt"
	"time"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/logx"
)

// Policy configures the middleware: a fixed number of attempts with a
// fixed delay between them.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy is a conservative default for interactive use.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

// Middleware wraps a capability with bounded retry and fixed backoff.
// Non-retryable errors (auth, bad prompt, parent-context cancellation)
// fail immediately. Events from failed attempts are still forwarded; a
// consumer may therefore see partial chunks from an attempt that was
// later retried.
func Middleware(policy Policy) agent.Middleware {
	logger := logx.NewLogger("retry")
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	return func(next agent.Capability) agent.Capability {
		return agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
			return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
				var lastErr error

				for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
					if attempt > 1 && policy.Backoff > 0 {
						select {
						case <-ctx.Done():
							return agent.Response{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
						case <-time.After(policy.Backoff):
						}
					}

					h := next.Start(ctx, req)
					for ev := range h.Events() {
						push(ev)
					}
					resp, err := h.Wait(ctx)
					if err == nil {
						return resp, nil
					}

					lastErr = err
					if !agenterrors.ShouldRetry(err) {
						break
					}
					if attempt < policy.MaxAttempts {
						logger.Warn("attempt %d/%d failed, retrying in %s: %v",
							attempt, policy.MaxAttempts, policy.Backoff, err)
					}
				}

				return agent.Response{}, lastErr
			})
		})
	}
}
