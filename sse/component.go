package sse

import (
	"context"
	"fmt"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/logger"
)

// Component owns a Hub's routing goroutine for the service lifetime.
type Component struct {
	hub  *Hub
	path string
	done chan struct{}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent wraps a fresh Hub that handlers mount at path.
func NewComponent(path string, log *logger.Logger) *Component {
	return &Component{hub: NewHub(log), path: path}
}

// Hub is where stages publish stage and buffer events.
func (c *Component) Hub() *Hub { return c.hub }

func (c *Component) Name() string { return "events" }

func (c *Component) Start(_ context.Context) error {
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.hub.Run()
	}()
	return nil
}

// Stop disconnects every client and waits for the routing loop, giving up
// when ctx ends first.
func (c *Component) Stop(ctx context.Context) error {
	c.hub.Stop()
	if c.done == nil {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: stop: %w", ctx.Err())
	}
}

// Health reports the hub as healthy with its client count.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Event Hub",
		Type:    "events",
		Details: fmt.Sprintf("path=%s", c.path),
	}
}
