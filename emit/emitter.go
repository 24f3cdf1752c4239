package emit

import "context"

// Emitter receives observability events produced by the transition engine.
//
// Implementations should be non-blocking, thread-safe (the engine calls
// Emit from many worker goroutines concurrently), and resilient — a
// misbehaving emitter must never be allowed to fail a transition.
type Emitter interface {
	// Emit sends a single event. It must not block the caller for long and
	// must not panic.
	Emit(event Event)

	// Flush ensures all buffered events are sent, blocking until done or
	// ctx is done.
	Flush(ctx context.Context) error
}
