package edge

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/resilience"
	"github.com/kbukum/edgecam/task"
)

// RestartStats reports a supervised stage.
type RestartStats struct {
	Restarts int64  `json:"restarts"`
	Breaker  string `json:"breaker"`
	GaveUp   bool   `json:"gave_up"`
}

type watched struct {
	runner   pipeline.Runner
	breaker  *resilience.CircuitBreaker
	restarts atomic.Int64
	gaveUp   atomic.Bool
}

// Supervisor restarts stages that terminate unexpectedly. Stages stopped
// by the caller are left alone. Register it after the stages it watches so
// it starts after them and stops before them.
type Supervisor struct {
	cfg     RestartConfig
	log     *logger.Logger
	watched []*watched

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

var (
	_ component.Component   = (*Supervisor)(nil)
	_ component.Describable = (*Supervisor)(nil)
)

// NewSupervisor creates a supervisor for runners. cfg is expected to have
// defaults applied.
func NewSupervisor(cfg RestartConfig, runners ...pipeline.Runner) *Supervisor {
	s := &Supervisor{cfg: cfg, log: logger.WithComponent("supervisor")}
	for _, r := range runners {
		bc := cfg.Breaker
		bc.Name = r.Name()
		prev := bc.OnStateChange
		log := s.log.WithStage(r.Name())
		bc.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("restart breaker changed state", logger.Fields("from", from.String(), "to", to.String()))
			if prev != nil {
				prev(name, from, to)
			}
		}
		s.watched = append(s.watched, &watched{runner: r, breaker: resilience.NewCircuitBreaker(bc)})
	}
	return s
}

// Name returns the component name.
func (s *Supervisor) Name() string { return "supervisor" }

// Start begins watching every runner.
func (s *Supervisor) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group = &errgroup.Group{}
	for _, w := range s.watched {
		s.group.Go(func() error {
			s.watch(ctx, w)
			return nil
		})
	}
	return nil
}

// Stop ends all watches. Stages are not stopped.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop supervisor: %w", ctx.Err())
	}
}

// Health is degraded once the supervisor has given up on a stage.
func (s *Supervisor) Health(context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	for _, w := range s.watched {
		if w.gaveUp.Load() {
			h.Status = component.StatusDegraded
			h.Message = "gave up restarting " + w.runner.Name()
		}
	}
	return h
}

// Describe returns summary info for the startup log.
func (s *Supervisor) Describe() component.Description {
	return component.Description{
		Name:    "Supervisor",
		Type:    "supervisor",
		Details: fmt.Sprintf("stages=%d max_restarts=%d", len(s.watched), s.cfg.MaxRestarts),
	}
}

// Stats returns restart counters by stage name.
func (s *Supervisor) Stats() map[string]RestartStats {
	out := make(map[string]RestartStats, len(s.watched))
	for _, w := range s.watched {
		out[w.runner.Name()] = RestartStats{
			Restarts: w.restarts.Load(),
			Breaker:  w.breaker.State().String(),
			GaveUp:   w.gaveUp.Load(),
		}
	}
	return out
}

func (s *Supervisor) watch(ctx context.Context, w *watched) {
	log := s.log.WithStage(w.runner.Name())
	consecutive := 0
	for {
		began := time.Now()
		select {
		case <-ctx.Done():
			return
		case <-w.runner.Done():
		}
		if ctx.Err() != nil || w.runner.IsRunning() {
			continue
		}
		if w.runner.LastOutcome() != task.OutcomeFailed {
			log.Debug("stage stopped, supervision ends")
			return
		}

		if time.Since(began) >= s.cfg.StableAfter {
			consecutive = 0
		}
		consecutive++
		if s.cfg.MaxRestarts > 0 && w.restarts.Load() >= int64(s.cfg.MaxRestarts) {
			w.gaveUp.Store(true)
			log.Error("restart budget exhausted", logger.Fields("restarts", w.restarts.Load()))
			return
		}

		if !s.restart(ctx, w, consecutive, log) {
			return
		}
	}
}

// restart brings a dead stage back, backing off by how many times in a row
// it has died. It reports false when ctx ends first.
func (s *Supervisor) restart(ctx context.Context, w *watched, consecutive int, log *logger.Logger) bool {
	delay := s.cfg.Retry.Backoff(consecutive)
	cause := w.runner.Err()
	for {
		log.Warn("restarting stage", logger.Fields(
			logger.FieldAttempt, consecutive,
			logger.FieldError, errText(cause),
			"delay_ms", delay.Milliseconds(),
		))
		if !sleep(ctx, delay) {
			return false
		}

		err := w.breaker.Execute(func() error {
			return resilience.RetryFunc(ctx, s.cfg.Retry, func() error {
				return w.runner.Start(ctx)
			})
		})
		switch {
		case err == nil:
			w.restarts.Add(1)
			log.Info("stage restarted", logger.Fields("restarts", w.restarts.Load()))
			return true
		case ctx.Err() != nil:
			return false
		case stderrors.Is(err, task.ErrAlreadyRunning):
			return true
		case stderrors.Is(err, resilience.ErrCircuitOpen):
			delay = w.breaker.RetryAfter()
		default:
			cause = err
			delay = s.cfg.Retry.MaxBackoff
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
