package pipeline

import (
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/observability"
	"github.com/kbukum/edgecam/task"
)

type options struct {
	resources   []Resource
	emptyPolicy EmptyPolicy
	log         *logger.Logger
	observers   []func(task.Event)
	metrics     *observability.StageMetrics
}

// Option configures a Stage or AsyncStage.
type Option func(*options)

// WithResources hands exclusive collaborators to the stage. They are
// opened in order on Start and closed in reverse when the run ends.
func WithResources(r ...Resource) Option {
	return func(o *options) { o.resources = append(o.resources, r...) }
}

// WithEmptyPolicy sets how an upstream ErrEmpty is handled.
func WithEmptyPolicy(p EmptyPolicy) Option {
	return func(o *options) { o.emptyPolicy = p }
}

// WithLogger sets the stage logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithObserver receives the stage's lifecycle events.
func WithObserver(fn func(task.Event)) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

// WithMetrics records stage instruments on m.
func WithMetrics(m *observability.StageMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(name string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("pipeline")
	}
	o.log = o.log.WithStage(name)
	return o
}

func (o options) taskOptions(cleanup func() error) []task.Option {
	opts := []task.Option{
		task.WithLogger(o.log),
		task.WithCleanup(cleanup),
		task.WithMetrics(o.metrics),
	}
	for _, fn := range o.observers {
		opts = append(opts, task.WithObserver(fn))
	}
	return opts
}
