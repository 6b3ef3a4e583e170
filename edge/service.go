package edge

import (
	"context"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/config"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/observability"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/server"
	"github.com/kbukum/edgecam/sse"
	"github.com/kbukum/edgecam/stream"
	"github.com/kbukum/edgecam/version"
)

// Route paths served by both services.
const (
	PathEvents = "/events"
	PathStages = "/stages"
	PathAdmin  = "/admin"
)

// EventStats reports the lifecycle event hub.
type EventStats struct {
	Clients   int    `json:"clients"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// DetectorStats reports the inference transform.
type DetectorStats struct {
	Model     string `json:"model"`
	Step      int    `json:"step"`
	Predicted uint64 `json:"predicted"`
	Skipped   uint64 `json:"skipped"`
}

// Snapshot is the pipeline state served at /stages.
type Snapshot struct {
	Service  string                  `json:"service"`
	Stages   []pipeline.Stats        `json:"stages"`
	Buffers  map[string]buffer.Stats `json:"buffers"`
	Streams  map[string]stream.Stats `json:"streams"`
	Restarts map[string]RestartStats `json:"restarts,omitempty"`
	Events   EventStats              `json:"events"`
	Detector *DetectorStats          `json:"detector,omitempty"`
}

// bufferHandle is the part of Evicting and Async the admin routes use.
type bufferHandle struct {
	stats  func() buffer.Stats
	resize func(ctx context.Context, n int) error
}

// streamHandler is the part of stream.Handler the service manages.
type streamHandler interface {
	Name() string
	Handle(c *gin.Context)
	Close()
	Stats() stream.Stats
}

// service holds what the inference and relay services share: the HTTP
// server, the event hub, stage runners, buffers, metrics and the
// supervisor.
type service struct {
	name    string
	log     *logger.Logger
	server  *server.Server
	events  *sse.Component
	metrics *observability.StageMetrics
	meter   metric.Meter
	tel     *telemetry

	runners    []pipeline.Runner
	buffers    map[string]bufferHandle
	streams    []streamHandler
	supervisor *Supervisor
	detector   func() *DetectorStats
	admin      []func(*gin.RouterGroup)
}

func newService(base *config.ServiceConfig, srv server.Config, obs observability.Config, log *logger.Logger) (*service, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	meter := observability.Meter("github.com/kbukum/edgecam")
	metrics, err := observability.NewStageMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &service{
		name:    base.Name,
		log:     log.WithComponent(base.Name),
		server:  server.New(srv, log),
		events:  sse.NewComponent(PathEvents, log),
		metrics: metrics,
		meter:   meter,
		tel:     newTelemetry(obs, base, version.Get().Version),
		buffers: make(map[string]bufferHandle),
	}, nil
}

// stageOptions are the options every stage of the service gets.
func (s *service) stageOptions(stages StagesConfig, extra ...pipeline.Option) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithEmptyPolicy(stages.Policy()),
		pipeline.WithObserver(sse.Observer(s.events.Hub())),
		pipeline.WithMetrics(s.metrics),
	}
	return append(opts, extra...)
}

func (s *service) addBuffer(name string, h bufferHandle) error {
	reg, err := observability.ObserveBuffer(s.meter, name, h.stats)
	if err != nil {
		return err
	}
	s.tel.track(reg)
	s.buffers[name] = h
	return nil
}

func (s *service) supervise(cfg RestartConfig) {
	if cfg.Enabled {
		s.supervisor = NewSupervisor(cfg, s.runners...)
	}
}

// Register mounts the routes and registers the components with reg in
// lifecycle order: telemetry, stages upstream first, streams, the HTTP
// server, events, then the supervisor. The event hub stops before the
// server so open SSE responses end and do not hold up its shutdown.
func (s *service) Register(reg *component.Registry) error {
	if err := s.mount(reg.HealthAll); err != nil {
		return err
	}
	components := []component.Component{s.tel}
	for _, r := range s.runners {
		components = append(components, r)
	}
	components = append(components,
		&streamsComponent{streams: s.streams},
		server.NewComponent(s.server),
		s.events,
	)
	if s.supervisor != nil {
		components = append(components, s.supervisor)
	}
	for _, c := range components {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Server returns the HTTP server.
func (s *service) Server() *server.Server { return s.server }

// Runners returns the stage runners upstream first.
func (s *service) Runners() []pipeline.Runner { return s.runners }

// Supervisor returns the restart supervisor, or nil when restarts are off.
func (s *service) Supervisor() *Supervisor { return s.supervisor }

// Snapshot collects the current pipeline state.
func (s *service) Snapshot(context.Context) Snapshot {
	snap := Snapshot{
		Service: s.name,
		Stages:  make([]pipeline.Stats, 0, len(s.runners)),
		Buffers: make(map[string]buffer.Stats, len(s.buffers)),
		Streams: make(map[string]stream.Stats, len(s.streams)),
		Events: EventStats{
			Clients:   s.events.Hub().ClientCount(),
			Published: s.events.Hub().Published(),
			Dropped:   s.events.Hub().Dropped(),
		},
	}
	for _, r := range s.runners {
		snap.Stages = append(snap.Stages, r.Stats())
	}
	for name, b := range s.buffers {
		snap.Buffers[name] = b.stats()
	}
	for _, h := range s.streams {
		snap.Streams[h.Name()] = h.Stats()
	}
	if s.supervisor != nil {
		snap.Restarts = s.supervisor.Stats()
	}
	if s.detector != nil {
		snap.Detector = s.detector()
	}
	return snap
}

func (s *service) runner(name string) (pipeline.Runner, error) {
	for _, r := range s.runners {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, errors.NotFound("stage", name)
}

func (s *service) bufferNames() []string {
	names := make([]string, 0, len(s.buffers))
	for name := range s.buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// streamsComponent closes stream handlers on shutdown so hijacked
// WebSocket connections end before the stages feeding them stop.
type streamsComponent struct {
	streams []streamHandler
}

func (c *streamsComponent) Name() string                { return "streams" }
func (c *streamsComponent) Start(context.Context) error { return nil }
func (c *streamsComponent) Health(context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *streamsComponent) Stop(context.Context) error {
	for _, h := range c.streams {
		h.Close()
	}
	return nil
}

func (c *streamsComponent) Describe() component.Description {
	names := make([]string, 0, len(c.streams))
	for _, h := range c.streams {
		names = append(names, h.Name())
	}
	return component.Description{Name: "Streams", Type: "streams", Details: strings.Join(names, ", ")}
}
