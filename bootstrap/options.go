package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/kbukum/edgecam/logger"
)

// Option tunes how an App runs. It is independent of the config type.
type Option func(*settings)

type settings struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	output          io.Writer
}

func newSettings(opts []Option) settings {
	s := settings{gracefulTimeout: 15 * time.Second, output: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger skips logger.Init and installs l as the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithGracefulTimeout bounds how long stages get to drain on shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.gracefulTimeout = d }
}

// WithSummaryOutput sends the startup summary to w instead of stdout.
func WithSummaryOutput(w io.Writer) Option {
	return func(s *settings) { s.output = w }
}
