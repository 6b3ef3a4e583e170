package inference

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/edgecam/capture"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/observability"
)

// Detector runs a model on every step-th frame. Frames in between carry
// the most recent predictions. It is a pipeline.Resource: Open resets the
// cycle and Close releases the model.
type Detector struct {
	model   Model
	skipper *Skipper
	log     *logger.Logger

	mu        sync.Mutex
	last      PredictionSet
	predicted uint64
	skipped   uint64
}

// NewDetector wraps model with a skipper of the given step.
func NewDetector(model Model, step int) (*Detector, error) {
	skipper, err := NewSkipper(step)
	if err != nil {
		return nil, errors.InvalidInput("step", err.Error())
	}
	return &Detector{
		model:   model,
		skipper: skipper,
		log:     logger.WithComponent("inference").WithFields(logger.Fields(logger.FieldModel, model.Name())),
		last:    PredictionSet{},
	}, nil
}

// Detect is the stage transform.
func (d *Detector) Detect(frame capture.Frame) (Result, error) {
	if d.skipper.Next() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.skipped++
		return Result{Frame: frame, Predictions: d.last}, nil
	}

	ctx, span := observability.StartSpan(context.Background(), observability.SpanPredict, trace.WithAttributes(
		attribute.String(observability.AttrModel, d.model.Name()),
		attribute.Int64("frame.seq", int64(frame.Seq)),
	))
	defer span.End()

	began := time.Now()
	preds, err := d.model.Predict(frame)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return Result{}, errors.InferenceFailed(d.model.Name(), err)
	}
	span.SetAttributes(attribute.Int64(observability.AttrDurationMs, time.Since(began).Milliseconds()))

	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = preds
	d.predicted++
	return Result{Frame: frame, Predictions: preds, Fresh: true}, nil
}

// Open starts a new cycle with no carried predictions.
func (d *Detector) Open(context.Context) error {
	d.skipper.Reset()
	d.mu.Lock()
	d.last = PredictionSet{}
	d.mu.Unlock()
	return nil
}

// Close releases the model.
func (d *Detector) Close() error {
	d.log.Info("releasing model", logger.Fields("predicted", d.Predicted(), "skipped", d.Skipped()))
	return d.model.Release()
}

// Skipper exposes the frame skipper so its step can be tuned at runtime.
func (d *Detector) Skipper() *Skipper { return d.skipper }

// Predicted returns how many frames the model ran on.
func (d *Detector) Predicted() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.predicted
}

// Skipped returns how many frames reused earlier predictions.
func (d *Detector) Skipped() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.skipped
}
