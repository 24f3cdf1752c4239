package emit

import "context"

// MultiEmitter fans a single event out to several Emitters, e.g. a
// LogEmitter for operational visibility alongside a BufferedEmitter for
// interactive inspection of recent history.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates a MultiEmitter that forwards to every emitter in
// emitters, in order.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit forwards event to every wrapped Emitter.
func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

// Flush flushes every wrapped Emitter, returning the first error
// encountered after attempting all of them.
func (m *MultiEmitter) Flush(ctx context.Context) error {
	var first error
	for _, e := range m.emitters {
		if err := e.Flush(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
