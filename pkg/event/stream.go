package event

import (
	"context"
	"sync"
)

// Stream is the push/pull bridge between a producing coroutine and its
// consumers. The producer pushes events and finishes exactly once with a
// result; the consumer side sees an ordered event sequence and a result
// that settles independently of whether events were ever read.
//
// Exactly one live consumer of Events is supported. Wait may be called any
// number of times from any goroutine.
type Stream[T any] struct {
	mu     sync.Mutex
	queue  []Event
	wake   chan struct{} // closed and replaced on every push/finish
	closed bool

	done   chan struct{}
	result T
	err    error

	pumpOnce sync.Once
	out      chan Event
}

// NewStream creates an empty, unfinished stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		wake: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Push appends an event to the queue. Pushing after Finish is a no-op.
func (s *Stream[T]) Push(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, ev)
	close(s.wake)
	s.wake = make(chan struct{})
}

// Finish settles the stream's result and marks the event sequence complete.
// Only the first call has any effect.
func (s *Stream[T]) Finish(result T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.result = result
	s.err = err
	close(s.wake)
	close(s.done)
}

// Events returns the consumer channel. Events are delivered in push (FIFO)
// order; the channel closes once Finish has been called and the queue is
// drained. The pump goroutine starts on first call, so a stream whose
// events are never consumed leaks nothing beyond its buffered queue.
func (s *Stream[T]) Events() <-chan Event {
	s.pumpOnce.Do(func() {
		s.out = make(chan Event)
		go s.pump()
	})
	return s.out
}

func (s *Stream[T]) pump() {
	defer close(s.out)
	next := 0
	for {
		s.mu.Lock()
		for next >= len(s.queue) {
			if s.closed {
				s.mu.Unlock()
				return
			}
			wake := s.wake
			s.mu.Unlock()
			<-wake
			s.mu.Lock()
		}
		ev := s.queue[next]
		next++
		s.mu.Unlock()

		s.out <- ev
	}
}

// Wait blocks until the stream finishes or ctx is cancelled, then returns
// the settled result. It mirrors the producing coroutine's outcome exactly
// once; repeated calls return the same values.
func (s *Stream[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Finished reports whether Finish has been called.
func (s *Stream[T]) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
