package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an immediately
// ended OpenTelemetry span. Events represent points in time (a row was
// claimed, a handler ran, a transition fired) rather than durations, so the
// span is started and ended within Emit rather than held open across a
// transition.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter that records spans through tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records event as a span named after event.Msg, with the table, row,
// and transition fields attached as attributes and any "error" metadata
// entry recorded as a span error.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	attrs := make([]attribute.KeyValue, 0, 4+len(event.Meta))
	attrs = append(attrs, attribute.String("table", event.Table))
	if event.RowID != "" {
		attrs = append(attrs, attribute.String("row_id", event.RowID))
	}
	if event.FromState != "" {
		attrs = append(attrs, attribute.String("from_state", event.FromState))
	}
	if event.ToState != "" {
		attrs = append(attrs, attribute.String("to_state", event.ToState))
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)

	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// Flush is a no-op: span export is handled by the configured
// SpanProcessor/TracerProvider, not by the emitter itself. Callers that need
// to force export before shutdown should flush the TracerProvider directly.
func (o *OTelEmitter) Flush(context.Context) error { return nil }
