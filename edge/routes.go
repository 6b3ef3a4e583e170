package edge

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/server"
	"github.com/kbukum/edgecam/server/endpoint"
	"github.com/kbukum/edgecam/sse"
)

// capacityRequest resizes a buffer.
type capacityRequest struct {
	Capacity int `json:"capacity" binding:"required,min=1"`
}

// stepRequest retunes the detector's frame step.
type stepRequest struct {
	Step int `json:"step" binding:"required,min=1"`
}

// mount registers the default endpoints, the stats and events routes, the
// WebSocket streams under /ws and the admin routes.
func (s *service) mount(checker endpoint.HealthChecker) error {
	s.server.ApplyDefaults(s.name, checker)

	engine := s.server.GinEngine()
	engine.GET(PathStages, endpoint.Stages(func(ctx context.Context) any { return s.Snapshot(ctx) }))
	engine.GET(PathStages+"/:name", s.getStage)
	engine.GET(PathEvents, sse.Handler(s.events.Hub()))

	ws, err := s.server.Protect("/ws")
	if err != nil {
		return err
	}
	for _, h := range s.streams {
		ws.GET("/"+h.Name(), h.Handle)
	}

	admin, err := s.server.Protect(PathAdmin)
	if err != nil {
		return err
	}
	admin.GET("/buffers", s.listBuffers)
	admin.PUT("/buffers/:name/capacity", s.setCapacity)
	for _, fn := range s.admin {
		fn(admin)
	}
	return nil
}

func (s *service) getStage(c *gin.Context) {
	r, err := s.runner(c.Param("name"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, gin.H{
		"stats":  r.Stats(),
		"health": r.Health(c.Request.Context()),
	})
}

func (s *service) listBuffers(c *gin.Context) {
	out := make(map[string]any, len(s.buffers))
	for _, name := range s.bufferNames() {
		out[name] = s.buffers[name].stats()
	}
	server.RespondOK(c, out)
}

// setCapacity resizes a buffer at runtime. Shrinking evicts the oldest
// items.
func (s *service) setCapacity(c *gin.Context) {
	name := c.Param("name")
	b, ok := s.buffers[name]
	if !ok {
		server.RespondWithError(c, errors.NotFound("buffer", name).WithDetails(map[string]any{
			"known": s.bufferNames(),
		}))
		return
	}
	var req capacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, errors.InvalidInput("capacity", err.Error()))
		return
	}
	before := b.stats()
	if err := b.resize(c.Request.Context(), req.Capacity); err != nil {
		server.RespondWithError(c, err)
		return
	}
	after := b.stats()
	s.log.Info("buffer resized", logger.Fields(
		"buffer", name,
		"from", before.Capacity,
		"to", after.Capacity,
		"evicted", after.Evicted-before.Evicted,
	))
	server.RespondOK(c, after)
}

func (s *service) setStep(set func(int) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			server.RespondWithError(c, errors.InvalidInput("step", err.Error()))
			return
		}
		if err := set(req.Step); err != nil {
			server.RespondWithError(c, errors.InvalidInput("step", err.Error()))
			return
		}
		server.RespondOK(c, s.detector())
	}
}
