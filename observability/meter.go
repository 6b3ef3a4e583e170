package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("exporting metrics", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// StageMetrics holds the instruments recorded by pipeline stages. A nil
// *StageMetrics is valid and records nothing.
type StageMetrics struct {
	itemsIn           metric.Int64Counter
	itemsOut          metric.Int64Counter
	transformErrors   metric.Int64Counter
	runs              metric.Int64Counter
	terminations      metric.Int64Counter
	running           metric.Int64UpDownCounter
	iterationDuration metric.Float64Histogram
}

// NewStageMetrics creates stage instruments on the given meter.
func NewStageMetrics(meter metric.Meter) (*StageMetrics, error) {
	itemsIn, err := meter.Int64Counter("stage.items.in",
		metric.WithDescription("Items taken from the upstream source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.items.in counter: %w", err)
	}

	itemsOut, err := meter.Int64Counter("stage.items.out",
		metric.WithDescription("Items pushed to the downstream sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.items.out counter: %w", err)
	}

	transformErrors, err := meter.Int64Counter("stage.transform.errors",
		metric.WithDescription("Transform calls that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.transform.errors counter: %w", err)
	}

	runs, err := meter.Int64Counter("stage.runs",
		metric.WithDescription("Number of times a stage loop was started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.runs counter: %w", err)
	}

	terminations, err := meter.Int64Counter("stage.terminations",
		metric.WithDescription("Stage loop exits by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.terminations counter: %w", err)
	}

	running, err := meter.Int64UpDownCounter("stage.running",
		metric.WithDescription("Number of stage loops currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.running gauge: %w", err)
	}

	iterationDuration, err := meter.Float64Histogram("stage.iteration.duration",
		metric.WithDescription("Duration of one loop iteration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.iteration.duration histogram: %w", err)
	}

	return &StageMetrics{
		itemsIn:           itemsIn,
		itemsOut:          itemsOut,
		transformErrors:   transformErrors,
		runs:              runs,
		terminations:      terminations,
		running:           running,
		iterationDuration: iterationDuration,
	}, nil
}

func stageAttr(stage string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String(AttrStage, stage))
}

// RecordStart counts a new run of the stage loop.
func (m *StageMetrics) RecordStart(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, stageAttr(stage))
	m.running.Add(ctx, 1, stageAttr(stage))
}

// RecordTermination counts the end of a run with its outcome.
func (m *StageMetrics) RecordTermination(ctx context.Context, stage, outcome string) {
	if m == nil {
		return
	}
	m.running.Add(ctx, -1, stageAttr(stage))
	m.terminations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordIteration records the duration of one loop iteration.
func (m *StageMetrics) RecordIteration(ctx context.Context, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.iterationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrStatus, status),
	))
}

// RecordItemIn counts an item taken from upstream.
func (m *StageMetrics) RecordItemIn(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.itemsIn.Add(ctx, 1, stageAttr(stage))
}

// RecordItemOut counts an item pushed downstream.
func (m *StageMetrics) RecordItemOut(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.itemsOut.Add(ctx, 1, stageAttr(stage))
}

// RecordTransformError counts a failed transform.
func (m *StageMetrics) RecordTransformError(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.transformErrors.Add(ctx, 1, stageAttr(stage))
}

// ObserveBuffer registers observable instruments that read stats on every
// collection. Call Unregister on the result when the buffer goes away.
func ObserveBuffer(meter metric.Meter, name string, stats func() buffer.Stats) (metric.Registration, error) {
	size, err := meter.Int64ObservableGauge("buffer.size",
		metric.WithDescription("Items currently buffered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating buffer.size gauge: %w", err)
	}
	capacity, err := meter.Int64ObservableGauge("buffer.capacity",
		metric.WithDescription("Configured buffer capacity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating buffer.capacity gauge: %w", err)
	}
	evicted, err := meter.Int64ObservableCounter("buffer.evicted",
		metric.WithDescription("Items discarded to make room or on shrink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating buffer.evicted counter: %w", err)
	}
	delivered, err := meter.Int64ObservableCounter("buffer.delivered",
		metric.WithDescription("Items removed by Get"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating buffer.delivered counter: %w", err)
	}

	attrs := metric.WithAttributes(attribute.String(AttrBuffer, name))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(size, int64(s.Size), attrs)
		o.ObserveInt64(capacity, int64(s.Capacity), attrs)
		o.ObserveInt64(evicted, int64(s.Evicted), attrs)
		o.ObserveInt64(delivered, int64(s.Got), attrs)
		return nil
	}, size, capacity, evicted, delivered)
}
