package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return New(&Config{Level: level, Format: FormatJSON, Writer: buf}, "test")
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "invalid-level")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("expected invalid level to fall back to info")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected info message to be written")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")
	l.Info("info msg")
	l.Warn("warn msg")

	if strings.Contains(buf.String(), "info msg") {
		t.Error("info should be filtered at warn level")
	}
	entry := lastLine(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("expected level 'warn', got %v", entry["level"])
	}
}

func TestWithStageAndTask(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").WithComponent("edge").WithStage("capture").WithTask("loop")
	l.Info("started", Fields(FieldSeq, 3))

	entry := lastLine(t, &buf)
	if entry[FieldComponent] != "edge" {
		t.Errorf("expected component 'edge', got %v", entry[FieldComponent])
	}
	if entry[FieldStage] != "capture" {
		t.Errorf("expected stage 'capture', got %v", entry[FieldStage])
	}
	if entry[FieldTask] != "loop" {
		t.Errorf("expected task 'loop', got %v", entry[FieldTask])
	}
	if entry[FieldSeq] != float64(3) {
		t.Errorf("expected seq 3, got %v", entry[FieldSeq])
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info")

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ContextWithRequestID(ctx, "req-1")

	l.WithContext(ctx).Info("ctx")
	entry := lastLine(t, &buf)
	if entry[FieldTraceID] != "0102030405060708090a0b0c0d0e0f10" {
		t.Errorf("unexpected trace id %v", entry[FieldTraceID])
	}
	if entry[FieldSpanID] != "0102030405060708" {
		t.Errorf("unexpected span id %v", entry[FieldSpanID])
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("unexpected request id %v", entry[FieldRequestID])
	}
}

func TestWithContextEmpty(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithContext(context.Background()).Info("plain")
	entry := lastLine(t, &buf)
	if _, ok := entry[FieldTraceID]; ok {
		t.Error("expected no trace id without a span")
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").
		WithFields(map[string]interface{}{"key": "value"}).
		WithError(fmt.Errorf("boom"))
	l.Error("failed")

	entry := lastLine(t, &buf)
	if entry["key"] != "value" {
		t.Errorf("expected key=value, got %v", entry["key"])
	}
	if entry["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", entry["error"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("discarded")
	l.WithStage("x").Error("discarded")
}

func TestInit(t *testing.T) {
	Init(&Config{Level: "info", Format: "console", Output: "stdout"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	defer Reset()
	stale := Get("capture")

	var buf bytes.Buffer
	SetGlobalLogger(newJSONLogger(&buf, "debug"))
	Get("capture").Info("frame read")
	WithComponent("relay").Debug("relay connected")

	if Get("capture") == stale {
		t.Error("expected component loggers derived earlier to be dropped")
	}
	for _, msg := range []string{"frame read", "relay connected"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("expected %q in output", msg)
		}
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"writer overrides output", Config{Level: "info", Format: "json", Writer: &bytes.Buffer{}}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "info", Format: "console", NoColor: true, Writer: &buf}, "edgecam")
	l.Warn("console line")
	out := buf.String()
	if !strings.Contains(out, "[edgecam][WRN]") {
		t.Errorf("expected service and level tag, got %q", out)
	}
}

func TestRegisterAndGet(t *testing.T) {
	defer Reset()
	l := NewDefault("custom-component")
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	defer Reset()
	l := Get("relay")
	if l == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
	if Get("relay") != l {
		t.Error("expected the derived logger to be cached")
	}
	Init(&Config{Level: "info", Format: "json", Output: "stdout"})
	if Get("relay") == l {
		t.Error("expected Init to drop cached component loggers")
	}
}

func TestRegisterDefaults(t *testing.T) {
	defer Reset()
	Init(&Config{Level: "info", Format: "json", Output: "stdout"})
	RegisterDefaults("capture", "inference", "stream")

	for _, name := range []string{"capture", "inference", "stream"} {
		if Get(name) == nil {
			t.Errorf("expected non-nil logger for %q", name)
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{
			"key-value pairs",
			[]interface{}{"op", "save", "id", 42},
			map[string]interface{}{"op": "save", "id": 42},
		},
		{
			"odd number of args",
			[]interface{}{"op", "save", "trailing"},
			map[string]interface{}{"op": "save"},
		},
		{
			"non-string key skipped",
			[]interface{}{123, "value", "key", "val"},
			map[string]interface{}{"key": "val"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Errorf("expected %d fields, got %d", len(tc.expected), len(result))
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorFields(t *testing.T) {
	fields := ErrorFields("read-frame", fmt.Errorf("device gone"))
	if fields[FieldOperation] != "read-frame" {
		t.Errorf("expected operation 'read-frame', got %v", fields[FieldOperation])
	}
	if fields[FieldError] != "device gone" {
		t.Errorf("expected error 'device gone', got %v", fields[FieldError])
	}
}

func TestDurationFields(t *testing.T) {
	fields := DurationFields("predict", 150*time.Millisecond)
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}
}
