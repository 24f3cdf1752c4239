package emit

import (
	"context"
	"sync"
	"time"
)

// HistoryFilter narrows BufferedEmitter.HistoryWithFilter to a subset of one
// table's stored events. All non-zero fields are applied with AND logic.
type HistoryFilter struct {
	// RowID restricts to events about a single row. Empty matches any row,
	// including model-level events that carry no RowID at all.
	RowID string
	// Msg restricts to one event name, e.g. "timeout_fired".
	Msg string
	// Since and Until bound the event's At timestamp. A zero value leaves
	// that side of the range unbounded.
	Since time.Time
	Until time.Time
}

// BufferedEmitter implements Emitter by storing events in memory, grouped by
// table, for interactive debugging and tests that want to assert on the
// event stream itself rather than scrape log lines.
//
// Unbounded growth is the caller's responsibility: long-running deployments
// should periodically Clear tables they no longer need history for.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores event under its Table.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.Table] = append(b.events[event.Table], event)
}

// Flush is a no-op: BufferedEmitter never buffers beyond the in-memory store
// itself, so there is nothing to wait on.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns a copy of every event stored for table, in emission order.
func (b *BufferedEmitter) History(table string) []Event {
	return b.HistoryWithFilter(table, HistoryFilter{})
}

// HistoryWithFilter returns a copy of table's events matching filter.
func (b *BufferedEmitter) HistoryWithFilter(table string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[table]
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if filter.RowID != "" && e.RowID != filter.RowID {
			continue
		}
		if filter.Msg != "" && e.Msg != filter.Msg {
			continue
		}
		if !filter.Since.IsZero() && e.At.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && e.At.After(filter.Until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Clear discards stored events for table, or every table if table is empty.
func (b *BufferedEmitter) Clear(table string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if table == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, table)
}
