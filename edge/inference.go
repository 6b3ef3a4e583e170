package edge

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/capture"
	"github.com/kbukum/edgecam/codec"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/inference"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/stream"
)

// Stage, buffer and stream names of the inference service.
const (
	StageCapture   = "capture"
	StageInference = "inference"
	BufferFrames   = "frames"
	BufferResults  = "results"
	StreamResults  = "stream"
)

// Inference is the edgecam service: frames are captured into the frames
// buffer, the detector turns them into results in the results buffer, and
// WebSocket clients at /ws/stream drain the results.
type Inference struct {
	*service

	Frames   *buffer.Evicting[capture.Frame]
	Results  *buffer.Evicting[inference.Result]
	Detector *inference.Detector
	Stream   *stream.Handler[inference.Result]
}

// NewInference assembles the service from cfg. cfg is expected to have
// defaults applied and to be valid.
func NewInference(cfg *InferenceConfig, log *logger.Logger) (*Inference, error) {
	svc, err := newService(&cfg.ServiceConfig, cfg.Server, cfg.Observability, log)
	if err != nil {
		return nil, err
	}

	frames, err := buffer.New[capture.Frame](cfg.Buffers.Frames)
	if err != nil {
		return nil, err
	}
	results, err := buffer.New[inference.Result](cfg.Buffers.Results)
	if err != nil {
		return nil, err
	}

	src, err := NewFrameSource(cfg.Capture)
	if err != nil {
		return nil, err
	}
	reader := capture.NewReader(src, cfg.Capture.Descriptor)
	model := inference.NewMotionModel(cfg.Inference.Motion)
	detector, err := inference.NewDetector(model, cfg.Inference.Step)
	if err != nil {
		return nil, err
	}

	captureStage := pipeline.NewStage[capture.Frame, capture.Frame](StageCapture, reader, frames,
		svc.stageOptions(cfg.Stages, pipeline.WithResources(reader))...)
	detectStage := pipeline.NewStage[capture.Frame, inference.Result](StageInference, frames, results,
		svc.stageOptions(cfg.Stages, pipeline.WithResources(detector))...)
	svc.runners = []pipeline.Runner{
		captureStage.Component(pipeline.Identity[capture.Frame](), cfg.Stages.Timeout),
		detectStage.Component(detector.Detect, cfg.Stages.Timeout),
	}

	quality := cfg.Stream.Quality
	handler := stream.NewHandler[inference.Result](StreamResults, pipeline.ContextSource[inference.Result](results),
		func(r inference.Result) ([]byte, error) { return codec.Encode(r, quality) }, cfg.Stream)
	svc.streams = append(svc.streams, handler)

	if err := svc.addBuffer(BufferFrames, bufferHandle{
		stats:  frames.Stats,
		resize: func(_ context.Context, n int) error { return frames.SetCapacity(n) },
	}); err != nil {
		return nil, err
	}
	if err := svc.addBuffer(BufferResults, bufferHandle{
		stats:  results.Stats,
		resize: func(_ context.Context, n int) error { return results.SetCapacity(n) },
	}); err != nil {
		return nil, err
	}

	svc.detector = func() *DetectorStats {
		return &DetectorStats{
			Model:     model.Name(),
			Step:      detector.Skipper().Step(),
			Predicted: detector.Predicted(),
			Skipped:   detector.Skipped(),
		}
	}
	svc.admin = append(svc.admin, func(g *gin.RouterGroup) {
		g.PUT("/inference/step", svc.setStep(detector.Skipper().SetStep))
	})
	svc.supervise(cfg.Stages.Restart)

	svc.log.Info("inference service assembled", logger.Fields(
		logger.FieldSource, cfg.Capture.Kind,
		"descriptor", cfg.Capture.Descriptor,
		"step", cfg.Inference.Step,
		BufferFrames, cfg.Buffers.Frames,
		BufferResults, cfg.Buffers.Results,
	))
	return &Inference{
		service:  svc,
		Frames:   frames,
		Results:  results,
		Detector: detector,
		Stream:   handler,
	}, nil
}

// NewFrameSource builds the frame source selected by cfg.Kind.
func NewFrameSource(cfg CaptureConfig) (capture.FrameSource, error) {
	switch cfg.Kind {
	case CaptureGenerator, "":
		return capture.NewGenerator(cfg.Generator), nil
	case CaptureSnapshot:
		return capture.NewSnapshot(cfg.Snapshot), nil
	default:
		return nil, errors.InvalidInput("capture.kind", fmt.Sprintf("unknown source kind %q", cfg.Kind))
	}
}
