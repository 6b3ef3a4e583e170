package pipeline

import (
	"sync/atomic"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/task"
)

// Stats is a snapshot of a stage's counters and lifecycle state.
type Stats struct {
	Name            string `json:"name"`
	Running         bool   `json:"running"`
	Runs            int    `json:"runs"`
	LastOutcome     string `json:"last_outcome"`
	LastError       string `json:"last_error,omitempty"`
	ItemsIn         uint64 `json:"items_in"`
	ItemsOut        uint64 `json:"items_out"`
	TransformErrors uint64 `json:"transform_errors"`
	EmptyPolls      uint64 `json:"empty_polls"`
}

type counters struct {
	in              atomic.Uint64
	out             atomic.Uint64
	transformErrors atomic.Uint64
	empties         atomic.Uint64
}

// lifecycle is the part of task.Task and task.AsyncTask a stage reports on.
type lifecycle interface {
	Name() string
	IsRunning() bool
	Runs() int
	LastOutcome() task.Outcome
	Err() error
}

func snapshot(lc lifecycle, c *counters) Stats {
	s := Stats{
		Name:            lc.Name(),
		Running:         lc.IsRunning(),
		Runs:            lc.Runs(),
		LastOutcome:     lc.LastOutcome().String(),
		ItemsIn:         c.in.Load(),
		ItemsOut:        c.out.Load(),
		TransformErrors: c.transformErrors.Load(),
		EmptyPolls:      c.empties.Load(),
	}
	if err := lc.Err(); err != nil {
		s.LastError = err.Error()
	}
	return s
}

func health(lc lifecycle) component.Health {
	h := component.Health{Name: lc.Name()}
	switch {
	case lc.IsRunning():
		h.Status = component.StatusHealthy
	case lc.LastOutcome() == task.OutcomeFailed:
		h.Status = component.StatusUnhealthy
		h.Message = "terminated unexpectedly"
		if err := lc.Err(); err != nil {
			h.Message += ": " + err.Error()
		}
	default:
		h.Status = component.StatusDegraded
		h.Message = "not running"
	}
	return h
}
