package emit

import (
	"context"
	"errors"
	"testing"
)

type recordingEmitter struct {
	events    []Event
	flushErr  error
	flushSeen bool
}

func (r *recordingEmitter) Emit(event Event) { r.events = append(r.events, event) }

func (r *recordingEmitter) Flush(context.Context) error {
	r.flushSeen = true
	return r.flushErr
}

func TestMultiEmitter_EmitForwardsToEveryWrapped(t *testing.T) {
	a := &recordingEmitter{}
	b := &recordingEmitter{}
	m := NewMultiEmitter(a, b)

	m.Emit(Event{Table: "jobs", RowID: "1", Msg: "state_entered"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("Emit should reach every wrapped emitter, got a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestMultiEmitter_FlushAttemptsAllAndReturnsFirstError(t *testing.T) {
	errA := errors.New("a failed")
	a := &recordingEmitter{flushErr: errA}
	b := &recordingEmitter{}
	c := &recordingEmitter{flushErr: errors.New("c failed")}
	m := NewMultiEmitter(a, b, c)

	err := m.Flush(context.Background())

	if !a.flushSeen || !b.flushSeen || !c.flushSeen {
		t.Errorf("Flush should attempt every wrapped emitter regardless of earlier errors")
	}
	if !errors.Is(err, errA) {
		t.Errorf("Flush should return the first error encountered, got %v", err)
	}
}

func TestMultiEmitter_FlushNilWhenAllSucceed(t *testing.T) {
	m := NewMultiEmitter(&recordingEmitter{}, &recordingEmitter{})
	if err := m.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v, want nil", err)
	}
}

func TestMultiEmitter_EmptyIsHarmless(t *testing.T) {
	m := NewMultiEmitter()
	m.Emit(Event{Table: "jobs"})
	if err := m.Flush(context.Background()); err != nil {
		t.Errorf("Flush on empty MultiEmitter: %v", err)
	}
}
