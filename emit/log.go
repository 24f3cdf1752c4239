package emit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogEmitter implements Emitter by writing a structured logrus entry per
// event. It is the emitter cmd/statord wires up by default.
type LogEmitter struct {
	logger *logrus.Logger
}

// NewLogEmitter creates a LogEmitter writing through logger. If logger is
// nil, logrus.StandardLogger() is used.
func NewLogEmitter(logger *logrus.Logger) *LogEmitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogEmitter{logger: logger}
}

// Emit writes event as a single structured log line.
func (l *LogEmitter) Emit(event Event) {
	fields := logrus.Fields{
		"table": event.Table,
		"row":   event.RowID,
	}
	if event.FromState != "" {
		fields["from_state"] = event.FromState
	}
	if event.ToState != "" {
		fields["to_state"] = event.ToState
	}
	for k, v := range event.Meta {
		fields[k] = v
	}
	l.logger.WithFields(fields).Debug(event.Msg)
}

// Flush is a no-op: logrus writes synchronously.
func (l *LogEmitter) Flush(context.Context) error { return nil }
