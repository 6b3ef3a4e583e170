package observability

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/edgecam/buffer"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return rec
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("edgecam")
	if cfg.ServiceName != "edgecam" {
		t.Errorf("expected ServiceName 'edgecam', got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := sampler(tc.rate).Description(); got != tc.want {
			t.Errorf("rate %v: expected %s, got %s", tc.rate, tc.want, got)
		}
	}
	if got := sampler(0.25).Description(); !strings.HasPrefix(got, "ParentBased") {
		t.Errorf("expected a parent-based ratio sampler, got %s", got)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("edgecam")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.Interval != 15*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, "edgecam", "dev", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("expected no-op shutdown, got %v", err)
	}
}

func TestNewStageMetrics(t *testing.T) {
	metrics, err := NewStageMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordStart(ctx, "capture")
	metrics.RecordItemIn(ctx, "capture")
	metrics.RecordItemOut(ctx, "capture")
	metrics.RecordTransformError(ctx, "capture")
	metrics.RecordIteration(ctx, "capture", time.Millisecond, nil)
	metrics.RecordIteration(ctx, "capture", time.Millisecond, fmt.Errorf("boom"))
	metrics.RecordTermination(ctx, "capture", "stopped")
}

func TestStageMetricsNilSafe(t *testing.T) {
	var metrics *StageMetrics
	ctx := context.Background()
	metrics.RecordStart(ctx, "x")
	metrics.RecordItemIn(ctx, "x")
	metrics.RecordTermination(ctx, "x", "failed")
}

func TestStageMetricsCollected(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewStageMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	metrics.RecordStart(ctx, "inference")
	metrics.RecordTermination(ctx, "inference", "failed")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "stage.terminations" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 {
				t.Fatalf("unexpected data %T", m.Data)
			}
			dp := sum.DataPoints[0]
			if dp.Value != 1 {
				t.Errorf("expected 1 termination, got %d", dp.Value)
			}
			if v, _ := dp.Attributes.Value(AttrOutcome); v.AsString() != "failed" {
				t.Errorf("expected outcome=failed, got %v", v)
			}
			found = true
		}
	}
	if !found {
		t.Error("stage.terminations not collected")
	}
}

func TestObserveBuffer(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	b, _ := buffer.New[int](2)
	for i := 0; i < 5; i++ {
		b.Push(i)
	}

	reg, err := ObserveBuffer(mp.Meter("test"), "frames", b.Stats)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Unregister()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}

	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Gauge[int64]:
				values[m.Name] = data.DataPoints[0].Value
			case metricdata.Sum[int64]:
				values[m.Name] = data.DataPoints[0].Value
			}
		}
	}
	if values["buffer.size"] != 2 {
		t.Errorf("expected size 2, got %d", values["buffer.size"])
	}
	if values["buffer.capacity"] != 2 {
		t.Errorf("expected capacity 2, got %d", values["buffer.capacity"])
	}
	if values["buffer.evicted"] != 3 {
		t.Errorf("expected evicted 3, got %d", values["buffer.evicted"])
	}
}

func TestStartRun_Span(t *testing.T) {
	rec := useRecorder(t)

	ctx, run := StartRun(context.Background(), "capture", nil)
	if RunFromContext(ctx) != run {
		t.Fatal("expected run in context")
	}
	if run.ID == "" {
		t.Error("expected run id")
	}
	run.End(ctx, "failed", fmt.Errorf("read failed"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanStageRun {
		t.Errorf("expected span %q, got %q", SpanStageRun, span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
	if v, ok := attrValue(span.Attributes(), AttrOutcome); !ok || v.AsString() != "failed" {
		t.Errorf("expected outcome=failed, got %v", v)
	}
	if v, ok := attrValue(span.Attributes(), AttrStage); !ok || v.AsString() != "capture" {
		t.Errorf("expected stage=capture, got %v", v)
	}
}

func TestRunFromContext_NotSet(t *testing.T) {
	if RunFromContext(context.Background()) != nil {
		t.Error("expected nil when no run is set")
	}
}

func TestSetSpanError(t *testing.T) {
	rec := useRecorder(t)
	ctx, span := StartSpan(context.Background(), "test-error")
	SetSpanError(ctx, fmt.Errorf("test error"))
	span.End()

	if len(rec.Ended()[0].Events()) != 1 {
		t.Error("expected recorded error event")
	}
	SetSpanError(context.Background(), fmt.Errorf("no span"))
}
