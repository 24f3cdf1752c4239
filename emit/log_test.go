package emit

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func TestLogEmitter_EmitWritesStructuredFields(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	emitter := NewLogEmitter(logger)

	emitter.Emit(Event{
		Table:     "jobs",
		RowID:     "42",
		Msg:       "state_entered",
		FromState: "new",
		ToState:   "done",
		Meta:      map[string]any{"latency_ms": 12},
	})

	if got := len(hook.Entries); got != 1 {
		t.Fatalf("logged %d entries, want 1", got)
	}
	entry := hook.LastEntry()
	if entry.Message != "state_entered" {
		t.Errorf("Message = %q, want %q", entry.Message, "state_entered")
	}
	if entry.Data["table"] != "jobs" {
		t.Errorf("table field = %v, want %q", entry.Data["table"], "jobs")
	}
	if entry.Data["row"] != "42" {
		t.Errorf("row field = %v, want %q", entry.Data["row"], "42")
	}
	if entry.Data["from_state"] != "new" {
		t.Errorf("from_state field = %v, want %q", entry.Data["from_state"], "new")
	}
	if entry.Data["to_state"] != "done" {
		t.Errorf("to_state field = %v, want %q", entry.Data["to_state"], "done")
	}
	if entry.Data["latency_ms"] != 12 {
		t.Errorf("latency_ms field = %v, want 12", entry.Data["latency_ms"])
	}
}

func TestLogEmitter_EmitOmitsEmptyFromToState(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	emitter := NewLogEmitter(logger)

	emitter.Emit(Event{Table: "jobs", RowID: "1", Msg: "no_transition"})

	entry := hook.LastEntry()
	if _, ok := entry.Data["from_state"]; ok {
		t.Errorf("from_state should be omitted when FromState is empty, got %v", entry.Data["from_state"])
	}
	if _, ok := entry.Data["to_state"]; ok {
		t.Errorf("to_state should be omitted when ToState is empty, got %v", entry.Data["to_state"])
	}
}

func TestLogEmitter_DefaultsToStandardLogger(t *testing.T) {
	emitter := NewLogEmitter(nil)
	if emitter.logger != logrus.StandardLogger() {
		t.Errorf("NewLogEmitter(nil) should default to logrus.StandardLogger()")
	}
}

func TestLogEmitter_FlushIsNoop(t *testing.T) {
	emitter := NewLogEmitter(nil)
	if err := emitter.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
}
