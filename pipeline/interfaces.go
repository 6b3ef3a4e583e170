package pipeline

import (
	"context"
	"time"
)

// Source yields one item per call, waiting up to timeout.
type Source[T any] interface {
	Get(timeout time.Duration) (T, error)
}

// Sink accepts items without blocking.
type Sink[T any] interface {
	Push(item T)
}

// AsyncSource is the context-aware form of Source.
type AsyncSource[T any] interface {
	Get(ctx context.Context, timeout time.Duration) (T, error)
}

// AsyncSink is the context-aware form of Sink. Push only fails when ctx
// is done.
type AsyncSink[T any] interface {
	Push(ctx context.Context, item T) error
}

// Resource is an exclusive collaborator owned by a stage: opened when the
// stage starts and closed once when its run ends.
type Resource interface {
	Open(ctx context.Context) error
	Close() error
}

// Transform maps one upstream item to one downstream item.
type Transform[I, O any] func(I) (O, error)

// Identity returns a transform that passes items through unchanged.
func Identity[T any]() Transform[T, T] {
	return func(item T) (T, error) { return item, nil }
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(timeout time.Duration) (T, error)

// Get calls f.
func (f SourceFunc[T]) Get(timeout time.Duration) (T, error) { return f(timeout) }

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(item T)

// Push calls f.
func (f SinkFunc[T]) Push(item T) { f(item) }

// ContextSource lifts a Source to an AsyncSource. The context is checked
// before each Get; the Get itself is bounded only by its timeout.
func ContextSource[T any](src Source[T]) AsyncSource[T] {
	return contextSource[T]{src: src}
}

type contextSource[T any] struct{ src Source[T] }

func (c contextSource[T]) Get(ctx context.Context, timeout time.Duration) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return c.src.Get(timeout)
}
