package edge

import (
	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/codec"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/stream"
)

// Stage, buffer and stream names of the relay service.
const (
	StageRelay  = "relay"
	BufferRelay = "relay"
	StreamRelay = "relay"
)

// Relay is the edgerelay service: payloads read from a remote edgecam
// stream are buffered and re-served at /ws/relay.
type Relay struct {
	*service

	Remote *stream.Remote
	Buffer *buffer.Async[codec.Payload]
	Stream *stream.Handler[codec.Payload]
}

// NewRelay assembles the service from cfg. cfg is expected to have
// defaults applied and to be valid.
func NewRelay(cfg *RelayConfig, log *logger.Logger) (*Relay, error) {
	svc, err := newService(&cfg.ServiceConfig, cfg.Server, cfg.Observability, log)
	if err != nil {
		return nil, err
	}

	buf, err := buffer.NewAsync[codec.Payload](cfg.Buffers.Relay)
	if err != nil {
		return nil, err
	}
	remote := stream.NewRemote(cfg.Relay)

	stage := pipeline.NewAsyncStage[codec.Payload, codec.Payload](StageRelay, remote, buf,
		svc.stageOptions(cfg.Stages, pipeline.WithResources(remote))...)
	svc.runners = []pipeline.Runner{
		stage.Component(pipeline.Identity[codec.Payload](), cfg.Stages.Timeout),
	}

	handler := stream.NewHandler[codec.Payload](StreamRelay, buf,
		func(p codec.Payload) ([]byte, error) { return codec.Marshal(p), nil }, cfg.Stream)
	svc.streams = append(svc.streams, handler)

	if err := svc.addBuffer(BufferRelay, bufferHandle{stats: buf.Stats, resize: buf.SetCapacity}); err != nil {
		return nil, err
	}
	svc.supervise(cfg.Stages.Restart)

	svc.log.Info("relay service assembled", logger.Fields(
		logger.FieldSource, cfg.Relay.URL,
		BufferRelay, cfg.Buffers.Relay,
	))
	return &Relay{service: svc, Remote: remote, Buffer: buf, Stream: handler}, nil
}
