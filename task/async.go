package task

import (
	"context"
	"fmt"
)

// AsyncTask repeats a context-aware unit of work. The work receives a
// context detached from the Start caller's cancellation, cancelled only
// when Stop escalates.
type AsyncTask struct {
	*core
}

// NewAsync creates an idle AsyncTask.
func NewAsync(name string, opts ...Option) *AsyncTask {
	return &AsyncTask{core: newCore(name, opts)}
}

// Start begins calling work repeatedly until Stop is called or work fails.
// Values carried by ctx remain visible to work.
func (t *AsyncTask) Start(ctx context.Context, work func(context.Context) error) error {
	return t.start(ctx, work)
}

// Stop asks the loop to exit after the current iteration and waits for it.
// If ctx ends first the loop context is cancelled, Stop waits for the loop
// to return and reports the context error. The run still counts as
// stopped by the caller.
func (t *AsyncTask) Stop(ctx context.Context) error {
	r, err := t.requestStop()
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
	}
	r.cancel()
	<-r.done
	return fmt.Errorf("stop %s: %w", t.name, ctx.Err())
}
