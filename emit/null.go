package emit

import "context"

// NullEmitter implements Emitter by discarding all events. It is the
// default when a Model is constructed without an explicit emitter.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

// Flush is a no-op.
func (n *NullEmitter) Flush(context.Context) error { return nil }
