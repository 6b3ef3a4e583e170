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

// Stage moves items from a Source to a Sink through a transform on a
// background task. It never manages its upstream's lifecycle, only the
// resources handed to it with WithResources.
type Stage[I, O any] struct {
	name  string
	src   Source[I]
	dst   Sink[O]
	opts  options
	task  *task.Task
	stats counters
	mu    sync.Mutex
}

// NewStage creates an idle stage.
func NewStage[I, O any](name string, src Source[I], dst Sink[O], opts ...Option) *Stage[I, O] {
	s := &Stage[I, O]{
		name: name,
		src:  src,
		dst:  dst,
		opts: buildOptions(name, opts),
	}
	s.task = task.New(name, s.opts.taskOptions(s.closeResources)...)
	return s
}

// Name returns the stage name.
func (s *Stage[I, O]) Name() string { return s.name }

// Start opens the stage's resources and starts the loop. An open failure
// is returned synchronously and leaves nothing open.
func (s *Stage[I, O]) Start(transform Transform[I, O], timeout time.Duration) error {
	return s.StartContext(context.Background(), transform, timeout)
}

// StartContext is Start with a context for opening resources.
func (s *Stage[I, O]) StartContext(ctx context.Context, transform Transform[I, O], timeout time.Duration) error {
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
	if err := s.task.Start(func() error { return s.iterate(transform, timeout) }); err != nil {
		_ = closeAll(s.opts.resources)
		return err
	}
	s.opts.log.Info("stage started", logger.Fields(
		"timeout", timeout.String(),
		"empty_policy", s.opts.emptyPolicy.String(),
	))
	return nil
}

func (s *Stage[I, O]) iterate(transform Transform[I, O], timeout time.Duration) error {
	ctx := context.Background()
	item, err := s.src.Get(timeout)
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
	s.dst.Push(out)
	s.stats.out.Add(1)
	s.opts.metrics.RecordItemOut(ctx, s.name)
	return nil
}

func (s *Stage[I, O]) closeResources() error {
	return closeAll(s.opts.resources)
}

// Stop ends the loop after the current iteration and waits for it. The
// stage's resources are closed by the loop before Stop returns. It fails
// with task.ErrNotRunning if the stage is idle.
func (s *Stage[I, O]) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task.Stop()
}

// IsRunning reports whether the loop is running.
func (s *Stage[I, O]) IsRunning() bool { return s.task.IsRunning() }

// Done returns a channel closed when the current run ends.
func (s *Stage[I, O]) Done() <-chan struct{} { return s.task.Done() }

// LastOutcome reports how the last run ended.
func (s *Stage[I, O]) LastOutcome() task.Outcome { return s.task.LastOutcome() }

// Err returns the error that ended the last run, if it failed.
func (s *Stage[I, O]) Err() error { return s.task.Err() }

// Stats returns a snapshot of the stage's counters.
func (s *Stage[I, O]) Stats() Stats { return snapshot(s.task, &s.stats) }

// Health reports healthy while running and unhealthy after a failure.
func (s *Stage[I, O]) Health() component.Health { return health(s.task) }
