package agent

import (
	"context"

	"agora/pkg/event"
)

// streamHandle adapts an event.Stream to the Handle interface.
type streamHandle struct {
	stream *event.Stream[Response]
}

func (h *streamHandle) Events() <-chan event.Event {
	return h.stream.Events()
}

func (h *streamHandle) Wait(ctx context.Context) (Response, error) {
	return h.stream.Wait(ctx)
}

// Push is the event callback handed to a capability's producing goroutine.
type Push func(event.Event)

// Go runs fn in its own goroutine and returns a Handle over its events and
// outcome. Provider adapters use this to turn a blocking SDK call into the
// handle contract: push chunks as they arrive, return the final response.
//
// If ctx is cancelled before fn observes it, the handle's Wait still
// settles with fn's error; fn is responsible for honoring ctx promptly.
func Go(ctx context.Context, fn func(ctx context.Context, push Push) (Response, error)) Handle {
	stream := event.NewStream[Response]()
	go func() {
		resp, err := fn(ctx, stream.Push)
		stream.Finish(resp, err)
	}()
	return &streamHandle{stream: stream}
}

// Done returns a handle that has already settled. Middleware uses it to
// short-circuit a call without spawning a goroutine.
func Done(resp Response, err error) Handle {
	stream := event.NewStream[Response]()
	stream.Finish(resp, err)
	return &streamHandle{stream: stream}
}
