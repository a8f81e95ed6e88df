package reporter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelReporter implements Reporter by creating one OpenTelemetry span per
// finding or trace event.
//
// Each finding becomes a span with:
//   - Span name: f.Kind ("invalid-inst", "invalid-term", "unknown-call")
//   - Attributes: run ID, function, block, detail
//   - Status: error, with Detail recorded on the span
//
// Each trace event becomes a span named by its Msg, with its Meta fields
// attached as attributes. Spans are started and ended immediately: every
// event here is a point in time, not a duration.
type OTelReporter struct {
	tracer trace.Tracer
}

// NewOTelReporter creates an OTelReporter from an OpenTelemetry tracer,
// typically otel.Tracer("boundwalk").
func NewOTelReporter(tracer trace.Tracer) *OTelReporter {
	return &OTelReporter{tracer: tracer}
}

func (o *OTelReporter) report(f Finding) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, f.Kind)
	defer span.End()

	span.SetAttributes(
		attribute.String("boundwalk.run_id", f.RunID),
		attribute.String("boundwalk.func", f.Func),
		attribute.String("boundwalk.block", f.Block),
		attribute.String("boundwalk.detail", f.Detail),
	)
	span.SetStatus(codes.Error, f.Detail)
	span.RecordError(fmt.Errorf("%s: %s", f.Kind, f.Detail))
}

func (o *OTelReporter) InvalidAccessInst(f Finding) { o.report(f) }
func (o *OTelReporter) InvalidAccessTerm(f Finding) { o.report(f) }
func (o *OTelReporter) UnknownCall(f Finding)       { o.report(f) }

func (o *OTelReporter) Trace(e TraceEvent) {
	ctx := context.Background()
	_, span := o.tracer.Start(ctx, e.Msg)
	defer span.End()

	span.SetAttributes(attribute.String("boundwalk.run_id", e.RunID))
	for key, value := range e.Meta {
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(key, v))
		case int:
			span.SetAttributes(attribute.Int(key, v))
		case int64:
			span.SetAttributes(attribute.Int64(key, v))
		case float64:
			span.SetAttributes(attribute.Float64(key, v))
		case bool:
			span.SetAttributes(attribute.Bool(key, v))
		default:
			span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
}

// Flush force-flushes the active tracer provider, if it supports it. Call
// this before process exit so buffered spans are not lost.
func Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
