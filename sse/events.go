package sse

import (
	"time"

	"github.com/kbukum/edgecam/task"
)

// SSE event names written on the "event:" line.
const (
	EventTypeConnected = "connected"
	EventTypeStarted   = "stage.started"
	EventTypeStopped   = "stage.stopped"
	EventTypeFailed    = "stage.failed"
)

// ConnectedEvent is sent when a client successfully connects.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	Stages   string `json:"stages"`
}

// LifecycleEvent is the JSON body of a stage event.
type LifecycleEvent struct {
	Stage string    `json:"stage"`
	Kind  string    `json:"kind"`
	Run   int       `json:"run"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// FromTask converts a task event.
func FromTask(ev task.Event) LifecycleEvent {
	out := LifecycleEvent{
		Stage: ev.Task,
		Kind:  string(ev.Kind),
		Run:   ev.Run,
		Time:  ev.Time.UTC(),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}

func eventType(kind task.EventKind) string {
	switch kind {
	case task.EventStarted:
		return EventTypeStarted
	case task.EventFailed:
		return EventTypeFailed
	default:
		return EventTypeStopped
	}
}
