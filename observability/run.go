package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Run tracks one execution of a stage loop from start to exit.
type Run struct {
	Stage     string
	ID        string
	StartTime time.Time
	Metrics   *StageMetrics

	span trace.Span
}

type runKey struct{}

// StartRun opens a span for a stage run and counts its start. Metrics may
// be nil.
func StartRun(ctx context.Context, stage string, metrics *StageMetrics) (context.Context, *Run) {
	r := &Run{
		Stage:     stage,
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		Metrics:   metrics,
	}
	ctx, r.span = StartSpan(ctx, SpanStageRun, trace.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrRunID, r.ID),
	))
	metrics.RecordStart(ctx, stage)
	return context.WithValue(ctx, runKey{}, r), r
}

// RunFromContext returns the Run stored by StartRun, or nil.
func RunFromContext(ctx context.Context) *Run {
	r, _ := ctx.Value(runKey{}).(*Run)
	return r
}

// End closes the run span and records the outcome.
func (r *Run) End(ctx context.Context, outcome string, err error) {
	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		r.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	r.span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.Int64(AttrDurationMs, r.Duration().Milliseconds()),
	)
	r.span.End()
	r.Metrics.RecordTermination(ctx, r.Stage, outcome)
}

// Duration returns the elapsed time since the run started.
func (r *Run) Duration() time.Duration {
	return time.Since(r.StartTime)
}
