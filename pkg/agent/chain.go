package agent

import "context"

// Middleware wraps a Capability with additional behavior. Middlewares are
// composed with Chain to create a processing pipeline.
type Middleware func(next Capability) Capability

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, req Request) Handle

// Start implements Capability.
func (f CapabilityFunc) Start(ctx context.Context, req Request) Handle {
	return f(ctx, req)
}

// Chain composes middlewares around a base capability. Middlewares apply
// in order, earlier entries outermost:
//
//	Chain(base, mw1, mw2) → mw1(mw2(base))
//
// so mw1 runs first and may short-circuit before mw2 or the base.
func Chain(base Capability, middlewares ...Middleware) Capability {
	c := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		c = middlewares[i](c)
	}
	return c
}
