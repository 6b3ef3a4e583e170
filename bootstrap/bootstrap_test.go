package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/config"
	"github.com/kbukum/edgecam/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	started  bool
	stopped  bool
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	m.started = true
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}

type describableComponent struct {
	mockComponent
	desc component.Description
}

func (d *describableComponent) Describe() component.Description { return d.desc }

func newTestConfig(name string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop()), WithSummaryOutput(io.Discard)}, opts...)
	app, err := NewApp(newTestConfig("edgecam-test"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "edgecam-test" {
		t.Errorf("expected name 'edgecam-test', got %q", app.Name)
	}
	if app.Version == "" {
		t.Error("expected version from build info")
	}
	if app.Components == nil || app.Logger == nil || app.Summary == nil {
		t.Error("expected registry, logger and summary")
	}
	if app.Cfg.Logging.Level != "debug" {
		t.Errorf("expected defaults applied (debug level in development), got %q", app.Cfg.Logging.Level)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "development"}}
	if _, err := NewApp(cfg, WithLogger(logger.NewNop())); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestGracefulTimeout(t *testing.T) {
	if app := newTestApp(t); app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected default 15s, got %v", app.gracefulTimeout)
	}
	if app := newTestApp(t, WithGracefulTimeout(5*time.Second)); app.gracefulTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", app.gracefulTimeout)
	}
}

func TestWithLogger(t *testing.T) {
	custom := logger.NewNop()
	app, err := NewApp(newTestConfig("x"), WithLogger(custom))
	if err != nil {
		t.Fatal(err)
	}
	if app.Logger != custom {
		t.Error("expected custom logger to be set")
	}
	if logger.GetGlobalLogger() != custom {
		t.Error("expected the custom logger to become the global one")
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "capture"}); err != nil {
		t.Fatal(err)
	}
	if app.Components.Get("capture") == nil {
		t.Error("expected component to be registered")
	}
	if err := app.RegisterComponent(&mockComponent{name: "capture"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestHooks(t *testing.T) {
	var order []string
	hooks := []Hook{
		func(ctx context.Context) error { order = append(order, "first"); return nil },
		func(ctx context.Context) error { return fmt.Errorf("fail") },
		func(ctx context.Context) error { order = append(order, "third"); return nil },
	}
	err := runHooks(context.Background(), hooks)
	if err == nil || !strings.Contains(err.Error(), "hook 1 failed") {
		t.Errorf("expected hook 1 failure, got %v", err)
	}
	if len(order) != 1 || order[0] != "first" {
		t.Errorf("expected execution to stop at the failing hook, got %v", order)
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name    string
		health  []component.Health
		wantErr bool
	}{
		{"empty", nil, false},
		{"all healthy", []component.Health{
			{Name: "capture", Status: component.StatusHealthy},
			{Name: "inference", Status: component.StatusHealthy},
		}, false},
		{"unhealthy", []component.Health{
			{Name: "capture", Status: component.StatusHealthy},
			{Name: "inference", Status: component.StatusUnhealthy, Message: "terminated"},
		}, true},
		{"degraded", []component.Health{
			{Name: "server", Status: component.StatusDegraded, Message: "slow"},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			for _, h := range tt.health {
				_ = app.RegisterComponent(&mockComponent{name: h.Name, health: h})
			}
			err := app.ReadyCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunTask(t *testing.T) {
	app := newTestApp(t)
	comp := &mockComponent{name: "capture", health: component.Health{Name: "capture", Status: component.StatusHealthy}}
	_ = app.RegisterComponent(comp)

	executed := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		executed = true
		if !comp.started {
			t.Error("expected component to be started before the task")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !executed {
		t.Error("expected task to run")
	}
	if !comp.stopped {
		t.Error("expected component to be stopped after task")
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t)
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return fmt.Errorf("task error")
	})
	if err == nil || err.Error() != "task error" {
		t.Errorf("expected 'task error', got %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	err := app.RunTask(ctx, func(taskCtx context.Context) error {
		cancel()
		<-taskCtx.Done()
		return taskCtx.Err()
	})
	if err == nil {
		t.Error("expected error from canceled task")
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	var order []string
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		order = append(order, "configure")
		if a.Cfg.Name != "edgecam-test" {
			t.Errorf("expected typed config in configure, got %q", a.Cfg.Name)
		}
		return a.RegisterComponent(&mockComponent{name: "late", health: component.Health{Status: component.StatusHealthy}})
	})
	app.OnStart(func(ctx context.Context) error { order = append(order, "start"); return nil })
	app.OnReady(func(ctx context.Context) error { order = append(order, "ready"); return nil })
	app.OnStop(func(ctx context.Context) error { order = append(order, "stop"); return nil })

	_ = app.RunTask(context.Background(), func(ctx context.Context) error {
		order = append(order, "task")
		return nil
	})

	expected := []string{"configure", "start", "ready", "task", "stop"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("expected %v, got %v", expected, order)
	}
	if late, ok := app.Components.Get("late").(*mockComponent); !ok || !late.started || !late.stopped {
		t.Error("expected component registered during configure to run through the lifecycle")
	}
}

func TestRunTaskFailures(t *testing.T) {
	failing := func(ctx context.Context) error { return fmt.Errorf("hook failed") }
	tests := []struct {
		name  string
		setup func(app *App[*testConfig])
	}{
		{"start hook", func(app *App[*testConfig]) { app.OnStart(failing) }},
		{"ready hook", func(app *App[*testConfig]) { app.OnReady(failing) }},
		{"stop hook", func(app *App[*testConfig]) { app.OnStop(failing) }},
		{"configure", func(app *App[*testConfig]) {
			app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error { return fmt.Errorf("configure failed") })
		}},
		{"component start", func(app *App[*testConfig]) {
			_ = app.RegisterComponent(&mockComponent{name: "bad", startErr: fmt.Errorf("open failed")})
		}},
		{"component stop", func(app *App[*testConfig]) {
			_ = app.RegisterComponent(&mockComponent{name: "bad", stopErr: fmt.Errorf("close failed")})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			tt.setup(app)
			if err := app.RunTask(context.Background(), func(ctx context.Context) error { return nil }); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStartHookFailureStopsComponents(t *testing.T) {
	app := newTestApp(t)
	comp := &mockComponent{name: "capture"}
	_ = app.RegisterComponent(comp)
	app.OnStart(func(ctx context.Context) error { return fmt.Errorf("no") })

	_ = app.RunTask(context.Background(), func(ctx context.Context) error { return nil })
	if !comp.stopped {
		t.Error("expected started components to be stopped after a hook failure")
	}
}

func TestWaitForSignalContextCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if sig := app.WaitForSignal(ctx); sig != nil {
		t.Errorf("expected nil signal for context cancellation, got %v", sig)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := newTestApp(t)
	comp := &mockComponent{name: "server", health: component.Health{Status: component.StatusHealthy}}
	_ = app.RegisterComponent(comp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !comp.stopped {
		t.Error("expected component to be stopped")
	}
}

func TestSummaryCollect(t *testing.T) {
	registry := component.NewRegistry()
	_ = registry.Register(&describableComponent{
		mockComponent: mockComponent{name: "http-server", health: component.Health{Status: component.StatusHealthy}},
		desc:          component.Description{Name: "HTTP Server", Type: "server", Details: "0.0.0.0", Port: 8080},
	})
	_ = registry.Register(&mockComponent{name: "plain", health: component.Health{Status: component.StatusHealthy}})

	infos := NewSummary("svc", "1.0.0").Collect(registry)
	if len(infos) != 2 {
		t.Fatalf("expected 2 infos, got %d", len(infos))
	}
	if infos[0].Name != "HTTP Server" || infos[0].Type != "server" || infos[0].Port != 8080 {
		t.Errorf("unexpected described info %+v", infos[0])
	}
	if infos[1].Name != "plain" || infos[1].Type != "component" {
		t.Errorf("unexpected plain info %+v", infos[1])
	}
	if NewSummary("svc", "1").Collect(nil) != nil {
		t.Error("expected nil for nil registry")
	}
}

func TestSummaryWrite(t *testing.T) {
	registry := component.NewRegistry()
	_ = registry.Register(&describableComponent{
		mockComponent: mockComponent{name: "capture", health: component.Health{Status: component.StatusHealthy}},
		desc:          component.Description{Type: "stage", Details: "generator -> frames(cap=4)"},
	})
	_ = registry.Register(&describableComponent{
		mockComponent: mockComponent{name: "inference", health: component.Health{Status: component.StatusUnhealthy, Message: "terminated"}},
		desc:          component.Description{Type: "stage", Details: "frames -> results(cap=4)"},
	})

	s := NewSummary("edgecam", "1.2.3")
	s.SetStartupDuration(250 * time.Millisecond)
	var out bytes.Buffer
	s.Write(&out, registry)

	text := out.String()
	for _, want := range []string{
		"edgecam v1.2.3 started in 0.25s",
		"Stages",
		"├── ✅ capture: generator -> frames(cap=4)",
		"└── ❌ inference: frames -> results(cap=4) (terminated)",
		"(1/2 healthy)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in summary:\n%s", want, text)
		}
	}
}

func TestSummaryWriteEmpty(t *testing.T) {
	var out bytes.Buffer
	NewSummary("edgecam", "dev").Write(&out, component.NewRegistry())
	if !strings.Contains(out.String(), "No components registered") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestHealthStatusIcon(t *testing.T) {
	tests := []struct {
		status component.HealthStatus
		want   string
	}{
		{component.StatusHealthy, "✅"},
		{component.StatusDegraded, "⚠️"},
		{component.StatusUnhealthy, "❌"},
		{"unknown", "❓"},
	}
	for _, tt := range tests {
		if got := healthStatusIcon(tt.status); got != tt.want {
			t.Errorf("healthStatusIcon(%s) = %q, expected %q", tt.status, got, tt.want)
		}
	}
}
