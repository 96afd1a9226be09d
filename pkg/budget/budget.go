// Package budget provides resource ceilings and running usage accounting for
// one top-level pattern execution.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Usage describes the token consumption of a single agent turn.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Limits configures the ceilings enforced by a Tracker. A zero value means
// the corresponding dimension is unlimited.
type Limits struct {
	MaxTokens   int64         `json:"max_tokens"`
	MaxCostUSD  float64       `json:"max_cost_usd"`
	MaxDuration time.Duration `json:"max_duration"`
}

// PriceLookup resolves the cost per million input/output tokens for a
// provider/model pair. A false return means the model is unknown, in which
// case its cost contribution is zero rather than an error.
type PriceLookup func(provider, model string) (cpmIn, cpmOut float64, ok bool)

// Snapshot is a point-in-time copy of a Tracker's accumulated usage.
type Snapshot struct {
	TotalTokens      int64         `json:"total_tokens"`
	EstimatedCostUSD float64       `json:"estimated_cost_usd"`
	Duration         time.Duration `json:"duration"`
}

// ExceededError reports a crossed budget ceiling. It is surfaced by the
// pre-flight check before a new agent call, never mid-call.
type ExceededError struct {
	Limits   Limits
	Snapshot Snapshot
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %d tokens, $%.4f, %s elapsed",
		e.Snapshot.TotalTokens, e.Snapshot.EstimatedCostUSD, e.Snapshot.Duration)
}

// Tracker accumulates token, cost, and duration usage against configured
// limits. All accumulation is monotonically non-decreasing. Safe for
// concurrent use.
type Tracker struct {
	mu     sync.Mutex
	limits Limits
	prices PriceLookup

	totalTokens int64
	costUSD     float64
	duration    time.Duration
}

// NewTracker creates a tracker with the given limits. prices may be nil, in
// which case every model is treated as unknown and contributes zero cost.
func NewTracker(limits Limits, prices PriceLookup) *Tracker {
	return &Tracker{limits: limits, prices: prices}
}

// RecordTokens accumulates a turn's token usage and its estimated cost.
// Cost is linear in input/output tokens at the looked-up per-million rates.
func (t *Tracker) RecordTokens(u Usage, provider, model string) {
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}

	var cost float64
	if t.prices != nil {
		if cpmIn, cpmOut, ok := t.prices(provider, model); ok {
			cost = float64(u.InputTokens)/1e6*cpmIn + float64(u.OutputTokens)/1e6*cpmOut
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalTokens += total
	t.costUSD += cost
}

// RecordDuration accumulates elapsed wall-clock time.
func (t *Tracker) RecordDuration(d time.Duration) {
	if d < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration += d
}

// Exceeded reports whether any configured ceiling has been crossed. Callers
// check this opportunistically before starting new work; an in-flight call
// is never preempted.
func (t *Tracker) Exceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exceededLocked()
}

func (t *Tracker) exceededLocked() bool {
	if t.limits.MaxTokens > 0 && t.totalTokens >= t.limits.MaxTokens {
		return true
	}
	if t.limits.MaxCostUSD > 0 && t.costUSD >= t.limits.MaxCostUSD {
		return true
	}
	if t.limits.MaxDuration > 0 && t.duration >= t.limits.MaxDuration {
		return true
	}
	return false
}

// Check returns an *ExceededError if any ceiling has been crossed, nil
// otherwise.
func (t *Tracker) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.exceededLocked() {
		return nil
	}
	return &ExceededError{
		Limits: t.limits,
		Snapshot: Snapshot{
			TotalTokens:      t.totalTokens,
			EstimatedCostUSD: t.costUSD,
			Duration:         t.duration,
		},
	}
}

// Current returns a snapshot of accumulated usage.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		TotalTokens:      t.totalTokens,
		EstimatedCostUSD: t.costUSD,
		Duration:         t.duration,
	}
}

type contextKey struct{}

// NewContext returns a context carrying the tracker, so that capability
// middleware can find the budget of the run it is serving.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tracker carried by ctx, or nil if there is none.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(contextKey{}).(*Tracker)
	return t
}
