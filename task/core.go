package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/observability"
)

// run is the per-execution state. A fresh run is created on every Start so
// a late Stop can never touch the flag of a later run.
type run struct {
	n        int
	stop     atomic.Bool
	byCaller bool // guarded by core.mu
	cancel   context.CancelFunc
	ctx      context.Context
	done     chan struct{}
}

// core holds the state machine shared by Task and AsyncTask.
type core struct {
	name      string
	log       *logger.Logger
	cleanup   func() error
	observers []func(Event)
	metrics   *observability.StageMetrics

	mu      sync.Mutex
	state   State
	current *run
	last    Outcome
	err     error
	runs    int
	done    chan struct{}
}

func newCore(name string, opts []Option) *core {
	c := &core{
		name: name,
		log:  logger.WithComponent("task"),
		done: make(chan struct{}),
	}
	close(c.done)
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithTask(name)
	return c
}

func (c *core) start(parent context.Context, work func(context.Context) error) error {
	c.mu.Lock()
	if c.state == Running {
		c.mu.Unlock()
		return errors.AlreadyRunning(c.name)
	}
	c.runs++
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	r := &run{n: c.runs, cancel: cancel, ctx: ctx, done: make(chan struct{})}
	c.state = Running
	c.current = r
	c.done = r.done
	c.mu.Unlock()

	go c.loop(r, work)
	return nil
}

// requestStop flags the current run and returns it, or fails if idle.
func (c *core) requestStop() (*run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return nil, errors.NotRunning(c.name)
	}
	r := c.current
	r.byCaller = true
	r.stop.Store(true)
	return r, nil
}

func (c *core) loop(r *run, work func(context.Context) error) {
	ctx, obsRun := observability.StartRun(r.ctx, c.name, c.metrics)
	c.log.Debug("task started", logger.Fields("run", r.n, observability.AttrRunID, obsRun.ID))
	c.emit(Event{Task: c.name, Kind: EventStarted, Run: r.n, Time: time.Now()})

	var err error
	for !r.stop.Load() {
		began := time.Now()
		err = c.invoke(ctx, work)
		c.metrics.RecordIteration(ctx, c.name, time.Since(began), err)
		if err != nil {
			break
		}
	}

	cleanupErr := c.runCleanup()
	c.finish(ctx, r, obsRun, err, cleanupErr)
}

func (c *core) invoke(ctx context.Context, work func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Internal(fmt.Errorf("task %s panicked: %v", c.name, p))
		}
	}()
	return work(ctx)
}

func (c *core) runCleanup() (err error) {
	if c.cleanup == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cleanup panicked: %v", p)
		}
	}()
	return c.cleanup()
}

func (c *core) finish(ctx context.Context, r *run, obsRun *observability.Run, err, cleanupErr error) {
	c.mu.Lock()
	byCaller := r.byCaller
	// Work that aborts because Stop escalated to cancellation still counts
	// as a caller stop.
	if byCaller && r.ctx.Err() != nil && stderrors.Is(err, context.Canceled) {
		err = nil
	}
	outcome := OutcomeStopped
	if err != nil {
		outcome = OutcomeFailed
	}
	c.last = outcome
	c.err = err
	c.state = Idle
	c.current = nil
	c.mu.Unlock()
	r.cancel()

	if cleanupErr != nil {
		c.log.Warn("task cleanup failed", logger.Fields("run", r.n, logger.FieldError, cleanupErr.Error()))
	}

	kind := EventStopped
	if outcome == OutcomeFailed {
		kind = EventFailed
		c.log.Error("task terminated unexpectedly", logger.Fields(
			"run", r.n,
			logger.FieldReason, "unexpected termination",
			logger.FieldError, err.Error(),
			logger.FieldDuration, obsRun.Duration().Milliseconds(),
		))
	} else {
		c.log.Info("task stopped", logger.Fields(
			"run", r.n,
			logger.FieldReason, "stopped by caller",
			logger.FieldDuration, obsRun.Duration().Milliseconds(),
		))
	}

	obsRun.End(ctx, outcome.String(), err)
	c.emit(Event{Task: c.name, Kind: kind, Run: r.n, Err: err, Time: time.Now()})
	close(r.done)
}

func (c *core) emit(ev Event) {
	for _, fn := range c.observers {
		fn(ev)
	}
}

// Name returns the task name.
func (c *core) Name() string { return c.name }

// State returns the current state.
func (c *core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsRunning reports whether a run is in flight.
func (c *core) IsRunning() bool { return c.State() == Running }

// LastOutcome reports how the last finished run ended.
func (c *core) LastOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Err returns the error that ended the last run, or nil if it was stopped
// by the caller.
func (c *core) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Runs returns how many times the task has been started.
func (c *core) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// Done returns a channel closed when the current run ends. If no run is in
// flight it refers to the last run and is already closed.
func (c *core) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}
