package component

import "context"

// HealthStatus is how a component reports itself to /health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's line in the health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is anything the Registry starts and stops with the service:
// pipeline stages, the admin server, the event hub, the supervisor.
//
// Start returns once the component is running; long work belongs on its
// own goroutine. Stop blocks until that work has ended or ctx expires.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a row of the startup summary.
type Description struct {
	Name    string // falls back to Component.Name
	Type    string // "stage", "server", "events", "supervisor"
	Details string // e.g. "capture -> frames(cap=4) timeout=1s"
	Port    int
}

// Describable components contribute a row to the startup summary.
type Describable interface {
	Describe() Description
}
