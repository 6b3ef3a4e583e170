package task

import (
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/observability"
)

// Option configures a Task or AsyncTask.
type Option func(*core)

// WithLogger sets the logger. The task name is added as a field.
func WithLogger(l *logger.Logger) Option {
	return func(c *core) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCleanup registers a hook run once at the end of every run, whether
// it ended by Stop or by failure.
func WithCleanup(fn func() error) Option {
	return func(c *core) {
		c.cleanup = fn
	}
}

// WithObserver adds a lifecycle observer. Observers run on the loop
// goroutine and must not block.
func WithObserver(fn func(Event)) Option {
	return func(c *core) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// WithMetrics records runs and iterations on m.
func WithMetrics(m *observability.StageMetrics) Option {
	return func(c *core) {
		c.metrics = m
	}
}
