package task

import "time"

// State is the lifecycle state of a task.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Outcome describes how the last run of a task ended.
type Outcome int

const (
	// OutcomeNone means the task has never finished a run.
	OutcomeNone Outcome = iota
	// OutcomeStopped means the last run ended through Stop.
	OutcomeStopped
	// OutcomeFailed means the last run ended on its own because the work
	// returned an error or panicked.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "stopped"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// EventKind identifies a lifecycle event.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventStopped EventKind = "stopped"
	EventFailed  EventKind = "failed"
)

// Event is delivered to observers on every lifecycle transition.
type Event struct {
	Task string
	Kind EventKind
	Run  int
	Err  error
	Time time.Time
}
