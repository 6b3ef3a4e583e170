package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/task"
)

// AsyncStage is the context-aware Stage over AsyncSource and AsyncSink.
// The loop context is cancelled only when Stop's context expires.
type AsyncStage[I, O any] struct {
	name  string
	src   AsyncSource[I]
	dst   AsyncSink[O]
	opts  options
	task  *task.AsyncTask
	stats counters
	mu    sync.Mutex
}

// NewAsyncStage creates an idle async stage.
func NewAsyncStage[I, O any](name string, src AsyncSource[I], dst AsyncSink[O], opts ...Option) *AsyncStage[I, O] {
	s := &AsyncStage[I, O]{
		name: name,
		src:  src,
		dst:  dst,
		opts: buildOptions(name, opts),
	}
	s.task = task.NewAsync(name, s.opts.taskOptions(s.closeResources)...)
	return s
}

// Name returns the stage name.
func (s *AsyncStage[I, O]) Name() string { return s.name }

// Start opens the stage's resources with ctx and starts the loop.
func (s *AsyncStage[I, O]) Start(ctx context.Context, transform Transform[I, O], timeout time.Duration) error {
	if timeout < 0 {
		return errors.InvalidTimeout(timeout)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.task.IsRunning() {
		return errors.AlreadyRunning(s.name)
	}
	if err := openAll(ctx, s.opts.resources); err != nil {
		s.opts.log.WithError(err).Error("stage open failed")
		return err
	}
	err := s.task.Start(ctx, func(ctx context.Context) error {
		return s.iterate(ctx, transform, timeout)
	})
	if err != nil {
		_ = closeAll(s.opts.resources)
		return err
	}
	s.opts.log.Info("stage started", logger.Fields(
		"timeout", timeout.String(),
		"empty_policy", s.opts.emptyPolicy.String(),
	))
	return nil
}

func (s *AsyncStage[I, O]) iterate(ctx context.Context, transform Transform[I, O], timeout time.Duration) error {
	item, err := s.src.Get(ctx, timeout)
	if err != nil {
		if s.opts.emptyPolicy == EmptyRetry && stderrors.Is(err, buffer.ErrEmpty) {
			s.stats.empties.Add(1)
			return nil
		}
		return err
	}
	s.stats.in.Add(1)
	s.opts.metrics.RecordItemIn(ctx, s.name)

	out, err := transform(item)
	if err != nil {
		s.stats.transformErrors.Add(1)
		s.opts.metrics.RecordTransformError(ctx, s.name)
		return err
	}
	if err := s.dst.Push(ctx, out); err != nil {
		return err
	}
	s.stats.out.Add(1)
	s.opts.metrics.RecordItemOut(ctx, s.name)
	return nil
}

func (s *AsyncStage[I, O]) closeResources() error {
	return closeAll(s.opts.resources)
}

// Stop ends the loop and waits for it, escalating to cancellation if ctx
// expires first.
func (s *AsyncStage[I, O]) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task.Stop(ctx)
}

// IsRunning reports whether the loop is running.
func (s *AsyncStage[I, O]) IsRunning() bool { return s.task.IsRunning() }

// Done returns a channel closed when the current run ends.
func (s *AsyncStage[I, O]) Done() <-chan struct{} { return s.task.Done() }

// LastOutcome reports how the last run ended.
func (s *AsyncStage[I, O]) LastOutcome() task.Outcome { return s.task.LastOutcome() }

// Err returns the error that ended the last run, if it failed.
func (s *AsyncStage[I, O]) Err() error { return s.task.Err() }

// Stats returns a snapshot of the stage's counters.
func (s *AsyncStage[I, O]) Stats() Stats { return snapshot(s.task, &s.stats) }

// Health reports healthy while running and unhealthy after a failure.
func (s *AsyncStage[I, O]) Health() component.Health { return health(s.task) }
