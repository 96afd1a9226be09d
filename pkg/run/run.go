// Package run bundles the per-execution state a pattern needs: a
// cancellation context, an optional budget tracker, an optional root trace,
// and free-form metadata. One Context is created per top-level pattern run
// and never reused.
package run

import (
	"context"

	"agora/pkg/budget"
	"agora/pkg/trace"
)

// Context carries one execution's cancellation, budget, and trace bundle.
type Context struct {
	ctx    context.Context
	cancel context.CancelFunc

	Budget   *budget.Tracker
	Trace    *trace.Context
	Metadata map[string]string
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithBudget attaches a budget tracker. The tracker is also embedded in the
// derived context so capability middleware can find it.
func WithBudget(t *budget.Tracker) Option {
	return func(rc *Context) { rc.Budget = t }
}

// WithTrace sets the root trace for the run.
func WithTrace(tc *trace.Context) Option {
	return func(rc *Context) { rc.Trace = tc }
}

// WithMetadata merges key/value pairs into the run's metadata.
func WithMetadata(md map[string]string) Option {
	return func(rc *Context) {
		for k, v := range md {
			rc.Metadata[k] = v
		}
	}
}

// New derives a cancellable run context from parent.
func New(parent context.Context, opts ...Option) *Context {
	rc := &Context{Metadata: make(map[string]string)}
	for _, opt := range opts {
		opt(rc)
	}

	ctx := parent
	if rc.Budget != nil {
		ctx = budget.NewContext(ctx, rc.Budget)
	}
	rc.ctx, rc.cancel = context.WithCancel(ctx)
	return rc
}

// Ctx returns the cancellation context threading through the call tree.
func (rc *Context) Ctx() context.Context {
	return rc.ctx
}

// Cancel stops new invocations from starting and is forwarded to any
// in-flight agent call. Safe to call more than once.
func (rc *Context) Cancel() {
	rc.cancel()
}

// Err reports why the run was cancelled, or nil while it is live.
func (rc *Context) Err() error {
	return rc.ctx.Err()
}

// CheckBudget performs the opportunistic pre-flight check done before
// starting new work. Nil when no budget is configured or no ceiling has
// been crossed; otherwise a *budget.ExceededError.
func (rc *Context) CheckBudget() error {
	if rc.Budget == nil {
		return nil
	}
	return rc.Budget.Check()
}

// ChildTrace returns a child of the run's trace, or nil when tracing is
// not configured.
func (rc *Context) ChildTrace(name string) *trace.Context {
	if rc.Trace == nil {
		return nil
	}
	return rc.Trace.Child(name)
}
