package task

import "context"

// Task repeats a blocking unit of work on a background goroutine.
type Task struct {
	*core
}

// New creates an idle Task.
func New(name string, opts ...Option) *Task {
	return &Task{core: newCore(name, opts)}
}

// Start begins calling work repeatedly until Stop is called or work fails.
// The task is Running when Start returns. It fails with ErrAlreadyRunning
// if a run is in flight.
func (t *Task) Start(work func() error) error {
	return t.start(context.Background(), func(context.Context) error {
		return work()
	})
}

// Stop asks the loop to exit after the current iteration and waits for it.
// It fails with ErrNotRunning if the task is idle, including after the
// last run terminated on its own.
func (t *Task) Stop() error {
	r, err := t.requestStop()
	if err != nil {
		return err
	}
	<-r.done
	return nil
}
