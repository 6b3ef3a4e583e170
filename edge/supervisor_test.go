package edge

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/resilience"
	"github.com/kbukum/edgecam/task"
)

// fakeRunner is a stage whose deaths the test controls.
type fakeRunner struct {
	name string

	mu        sync.Mutex
	running   bool
	done      chan struct{}
	outcome   task.Outcome
	err       error
	starts    int
	startErrs []error
}

var _ pipeline.Runner = (*fakeRunner)(nil)

func newFakeRunner(name string) *fakeRunner {
	r := &fakeRunner{name: name, done: make(chan struct{})}
	close(r.done)
	return r
}

func (r *fakeRunner) Name() string { return r.name }

func (r *fakeRunner) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.AlreadyRunning(r.name)
	}
	if len(r.startErrs) > 0 {
		err := r.startErrs[0]
		r.startErrs = r.startErrs[1:]
		return err
	}
	r.running = true
	r.done = make(chan struct{})
	r.starts++
	return nil
}

func (r *fakeRunner) Stop(context.Context) error {
	r.end(task.OutcomeStopped, nil)
	return nil
}

// die ends the current run as an unexpected termination.
func (r *fakeRunner) die(err error) { r.end(task.OutcomeFailed, err) }

func (r *fakeRunner) end(outcome task.Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.outcome, r.err = outcome, err
	close(r.done)
}

func (r *fakeRunner) Health(context.Context) component.Health {
	return component.Health{Name: r.name, Status: component.StatusHealthy}
}

func (r *fakeRunner) Describe() component.Description {
	return component.Description{Name: r.name, Type: "stage"}
}

func (r *fakeRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *fakeRunner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *fakeRunner) LastOutcome() task.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

func (r *fakeRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *fakeRunner) Stats() pipeline.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pipeline.Stats{Name: r.name, Running: r.running, Runs: r.starts}
}

func (r *fakeRunner) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func restartConfig() RestartConfig {
	cfg := RestartConfig{
		Enabled:     true,
		StableAfter: time.Minute,
		Retry: resilience.RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			BackoffFactor:  1,
		},
		Breaker: resilience.CircuitBreakerConfig{
			MaxFailures: 2,
			Timeout:     20 * time.Millisecond,
		},
	}
	cfg.Retry.ApplyDefaults()
	return cfg
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func startSupervisor(t *testing.T, s *Supervisor) {
	t.Helper()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
}

func TestSupervisor_RestartsFailedStage(t *testing.T) {
	r := newFakeRunner("capture")
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := NewSupervisor(restartConfig(), r)
	startSupervisor(t, s)

	r.die(fmt.Errorf("camera unplugged"))
	eventually(t, func() bool { return r.startCount() == 2 && r.IsRunning() }, "expected the stage to be restarted")

	r.die(fmt.Errorf("camera unplugged again"))
	eventually(t, func() bool { return r.startCount() == 3 }, "expected a second restart")

	stats := s.Stats()["capture"]
	if stats.Restarts != 2 || stats.GaveUp {
		t.Errorf("expected 2 restarts, got %+v", stats)
	}
	if h := s.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy supervisor, got %s", h.Status)
	}
}

func TestSupervisor_LeavesStoppedStageAlone(t *testing.T) {
	r := newFakeRunner("inference")
	_ = r.Start(context.Background())
	s := NewSupervisor(restartConfig(), r)
	startSupervisor(t, s)

	_ = r.Stop(context.Background())
	time.Sleep(30 * time.Millisecond)
	if r.startCount() != 1 || r.IsRunning() {
		t.Errorf("expected a caller stop not to restart, got %d starts", r.startCount())
	}
}

func TestSupervisor_GivesUpAfterBudget(t *testing.T) {
	cfg := restartConfig()
	cfg.MaxRestarts = 1
	r := newFakeRunner("relay")
	_ = r.Start(context.Background())
	s := NewSupervisor(cfg, r)
	startSupervisor(t, s)

	r.die(fmt.Errorf("remote closed"))
	eventually(t, func() bool { return r.startCount() == 2 }, "expected one restart")
	r.die(fmt.Errorf("remote closed"))
	eventually(t, func() bool { return s.Stats()["relay"].GaveUp }, "expected the supervisor to give up")

	if r.IsRunning() {
		t.Error("expected the stage to stay down")
	}
	h := s.Health(context.Background())
	if h.Status != component.StatusDegraded || h.Message != "gave up restarting relay" {
		t.Errorf("expected degraded health, got %s %q", h.Status, h.Message)
	}
}

func TestSupervisor_BreakerGuardsRestartAttempts(t *testing.T) {
	r := newFakeRunner("capture")
	_ = r.Start(context.Background())
	boom := fmt.Errorf("device busy")
	r.mu.Lock()
	r.startErrs = []error{boom, boom}
	r.mu.Unlock()

	s := NewSupervisor(restartConfig(), r)
	startSupervisor(t, s)

	r.die(fmt.Errorf("read failed"))
	eventually(t, func() bool { return s.Stats()["capture"].Breaker == resilience.StateOpen.String() },
		"expected the breaker to open after repeated start failures")
	eventually(t, func() bool { return r.IsRunning() }, "expected a trial start once the breaker half-opens")

	stats := s.Stats()["capture"]
	if stats.Restarts != 1 {
		t.Errorf("expected 1 restart, got %d", stats.Restarts)
	}
	if stats.Breaker != resilience.StateClosed.String() {
		t.Errorf("expected the breaker to close again, got %s", stats.Breaker)
	}
}

func TestSupervisor_StopEndsWatching(t *testing.T) {
	r := newFakeRunner("capture")
	_ = r.Start(context.Background())
	s := NewSupervisor(restartConfig(), r)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("expected a second Start to be a no-op, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	r.die(fmt.Errorf("late failure"))
	time.Sleep(20 * time.Millisecond)
	if r.startCount() != 1 {
		t.Errorf("expected no restart after Stop, got %d starts", r.startCount())
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("expected a second Stop to be a no-op, got %v", err)
	}
}

func TestSupervisor_Describe(t *testing.T) {
	cfg := restartConfig()
	cfg.MaxRestarts = 5
	s := NewSupervisor(cfg, newFakeRunner("capture"), newFakeRunner("inference"))
	d := s.Describe()
	if d.Type != "supervisor" || d.Details != "stages=2 max_restarts=5" {
		t.Errorf("unexpected description %+v", d)
	}
}
