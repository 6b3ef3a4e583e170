// Package task runs a unit of work repeatedly in a background goroutine
// with an explicit Idle/Running state machine.
//
// A run ends in one of two ways. A caller stop sets the run's stop flag,
// which the loop checks once per iteration, and joins the goroutine. A
// self-termination happens when the work returns an error or panics. Both
// paths run the cleanup hook exactly once, but they are reported
// differently: a caller stop is logged at info and emitted as
// EventStopped, a self-termination is logged at error as an unexpected
// termination and emitted as EventFailed. After a self-termination Stop
// returns ErrNotRunning.
//
// Because cancellation is cooperative, work that is meant to be stoppable
// must not block without a bound. Use finite timeouts inside the work.
package task
