package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"bspub/internal/infrastructure"
)

const (
	TracerName = "bspub.operations"
)

// OutputTracer provides spans and metrics for a publication run
type OutputTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PublicationMetrics
}

// NewOutputTracer creates a tracer from the run's providers. A nil
// providers value gives a tracer that records nothing.
func NewOutputTracer(providers *infrastructure.OTelProviders) (*OutputTracer, error) {
	if providers == nil {
		return &OutputTracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}
	m, err := infrastructure.CreatePublicationMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}
	return &OutputTracer{tracer: providers.Tracer, metrics: m}, nil
}

// TraceRun creates the span enclosing a whole run
func (ot *OutputTracer) TraceRun(ctx context.Context, destinations, outputs int) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "publication.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("run.destinations", destinations),
			attribute.Int("run.outputs", outputs),
		),
	)
}

// FinishRun ends the run span and records the run metrics
func (ot *OutputTracer) FinishRun(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	finish(span, err)
	infrastructure.RecordRunMetrics(ctx, ot.metrics, duration, err)
}

// TraceOutput creates a span for one output
func (ot *OutputTracer) TraceOutput(ctx context.Context, group, output, writeType string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "publication.output."+writeType,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("output.group", group),
			attribute.String("output.name", output),
			attribute.String("output.write_type", writeType),
		),
	)
}

// FinishOutput ends an output span and records its metrics
func (ot *OutputTracer) FinishOutput(ctx context.Context, span trace.Span, group, output, writeType string, duration time.Duration, rows int, err error) {
	span.SetAttributes(attribute.Int("output.rows", rows))
	finish(span, err)
	infrastructure.RecordOutputMetrics(ctx, ot.metrics, group, output, writeType, duration, rows, err)
}

// RecordWorkbookSaved counts a saved workbook
func (ot *OutputTracer) RecordWorkbookSaved(ctx context.Context, workbook string) {
	trace.SpanFromContext(ctx).AddEvent("workbook.saved", trace.WithAttributes(attribute.String("workbook", workbook)))
	if ot.metrics == nil {
		return
	}
	ot.metrics.WorkbooksSaved.Add(ctx, 1, metric.WithAttributes(attribute.String("workbook", workbook)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
