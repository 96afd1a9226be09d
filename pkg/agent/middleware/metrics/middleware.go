package metrics

import (
	"context"
	"errors"
	"time"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/budget"
	"agora/pkg/logx"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Middleware returns a middleware that records metrics for capability
// calls: request latency, token usage, success/failure rates, and error
// types. cost per call is derived from the price lookup; a nil lookup
// records zero cost.
func Middleware(recorder Recorder, provider, model string, prices budget.PriceLookup, logger *logx.Logger) agent.Middleware {
	if recorder == nil {
		recorder = Nop()
	}

	return func(next agent.Capability) agent.Capability {
		return agent.CapabilityFunc(func(ctx context.Context, req agent.Request) agent.Handle {
			return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
				start := time.Now()

				h := next.Start(ctx, req)
				for ev := range h.Events() {
					push(ev)
				}
				resp, err := h.Wait(ctx)
				duration := time.Since(start)

				var promptTokens, completionTokens int64
				if err == nil && resp.Usage != nil {
					promptTokens = resp.Usage.InputTokens
					completionTokens = resp.Usage.OutputTokens
				}

				var cost float64
				if prices != nil {
					if cpmIn, cpmOut, ok := prices(provider, model); ok {
						cost = float64(promptTokens)/1e6*cpmIn + float64(completionTokens)/1e6*cpmOut
					}
				}

				errorType := ""
				if err != nil {
					errorType = getErrorType(err)
				}

				recorder.ObserveRequest(provider, model, promptTokens, completionTokens, cost, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Debug("capability call: provider=%s model=%s tokens=%d+%d status=%s duration=%dms",
						provider, model, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			})
		})
	}
}

// getErrorType classifies errors for metrics labeling.
func getErrorType(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var exceeded *budget.ExceededError
	if errors.As(err, &exceeded) {
		return "budget_exceeded"
	}
	return agenterrors.TypeOf(err).String()
}
