package edge

import (
	"time"

	"github.com/kbukum/edgecam/capture"
	"github.com/kbukum/edgecam/config"
	"github.com/kbukum/edgecam/inference"
	"github.com/kbukum/edgecam/observability"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/resilience"
	"github.com/kbukum/edgecam/server"
	"github.com/kbukum/edgecam/stream"
	"github.com/kbukum/edgecam/validation"
)

// Capture source kinds.
const (
	CaptureGenerator = "generator"
	CaptureSnapshot  = "snapshot"
)

// CaptureConfig selects and configures the frame source.
type CaptureConfig struct {
	Kind string `yaml:"kind" mapstructure:"kind" validate:"oneof=generator snapshot"`
	// Descriptor identifies the source: the snapshot URL, or a label for
	// the generator.
	Descriptor string                  `yaml:"descriptor" mapstructure:"descriptor"`
	Generator  capture.GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Snapshot   capture.SnapshotConfig  `yaml:"snapshot" mapstructure:"snapshot"`
}

// ModelConfig configures the detector.
type ModelConfig struct {
	// Step runs the model on every step-th frame; skipped frames reuse the
	// last predictions.
	Step   int                    `yaml:"step" mapstructure:"step" validate:"min=1"`
	Motion inference.MotionConfig `yaml:"motion" mapstructure:"motion"`
}

// BuffersConfig sizes the buffers between stages.
type BuffersConfig struct {
	Frames  int `yaml:"frames" mapstructure:"frames" validate:"min=1"`
	Results int `yaml:"results" mapstructure:"results" validate:"min=1"`
	Relay   int `yaml:"relay" mapstructure:"relay" validate:"min=1"`
}

// RestartConfig controls the supervisor. Restarts are off by default.
type RestartConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxRestarts bounds restarts per stage. Zero is unlimited.
	MaxRestarts int `yaml:"max_restarts" mapstructure:"max_restarts" validate:"min=0"`
	// StableAfter is how long a run must last for its death to count as
	// a fresh failure rather than another in a row.
	StableAfter time.Duration                   `yaml:"stable_after" mapstructure:"stable_after"`
	Retry       resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	Breaker     resilience.CircuitBreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// StagesConfig applies to every stage of a service.
type StagesConfig struct {
	// Timeout bounds each upstream Get.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// EmptyPolicy is "fail" or "retry".
	EmptyPolicy string        `yaml:"empty_policy" mapstructure:"empty_policy" validate:"oneof=fail retry"`
	Restart     RestartConfig `yaml:"restart" mapstructure:"restart"`
}

// ApplyDefaults fills zero values.
func (c *StagesConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = time.Second
	}
	if c.EmptyPolicy == "" {
		c.EmptyPolicy = pipeline.EmptyRetry.String()
	}
	if c.Restart.StableAfter == 0 {
		c.Restart.StableAfter = 30 * time.Second
	}
	c.Restart.Retry.ApplyDefaults()
}

// Policy returns the parsed empty policy.
func (c *StagesConfig) Policy() pipeline.EmptyPolicy {
	p, _ := pipeline.ParseEmptyPolicy(c.EmptyPolicy)
	return p
}

// InferenceConfig is the configuration of the edgecam service.
type InferenceConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Capture       CaptureConfig        `yaml:"capture" mapstructure:"capture"`
	Inference     ModelConfig          `yaml:"inference" mapstructure:"inference"`
	Buffers       BuffersConfig        `yaml:"buffers" mapstructure:"buffers"`
	Stages        StagesConfig         `yaml:"stages" mapstructure:"stages"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Stream        stream.Config        `yaml:"stream" mapstructure:"stream"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *InferenceConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Capture.Kind == "" {
		c.Capture.Kind = CaptureGenerator
	}
	if c.Capture.Descriptor == "" && c.Capture.Kind == CaptureGenerator {
		c.Capture.Descriptor = "test-pattern"
	}
	c.Capture.Generator.ApplyDefaults()
	c.Capture.Snapshot.ApplyDefaults()
	if c.Inference.Step == 0 {
		c.Inference.Step = 1
	}
	c.Inference.Motion.ApplyDefaults()
	applyBufferDefaults(&c.Buffers)
	c.Stages.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks struct rules and the cross-field constraints.
func (c *InferenceConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	v := validation.New()
	v.Merge("", validation.Validate(c))
	v.Merge("server", c.Server.Validate())
	v.Timeout("stages.timeout", c.Stages.Timeout)
	switch c.Capture.Kind {
	case CaptureSnapshot:
		v.URL("capture.descriptor", c.Capture.Descriptor, "http", "https")
		v.Custom(c.Stages.Policy() != pipeline.EmptyFail || c.Stages.Timeout > c.Capture.Snapshot.Interval,
			"stages.timeout", "must exceed capture.snapshot.interval when empty_policy is fail")
	case CaptureGenerator:
		g := c.Capture.Generator
		v.Range("inference.motion.cell", c.Inference.Motion.Cell, 1, min(g.Width, g.Height))
	}
	return v.Validate()
}

// RelayConfig is the configuration of the edgerelay service.
type RelayConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Relay         stream.RemoteConfig  `yaml:"relay" mapstructure:"relay"`
	Buffers       BuffersConfig        `yaml:"buffers" mapstructure:"buffers"`
	Stages        StagesConfig         `yaml:"stages" mapstructure:"stages"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Stream        stream.Config        `yaml:"stream" mapstructure:"stream"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *RelayConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Relay.ApplyDefaults()
	applyBufferDefaults(&c.Buffers)
	c.Stages.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Server.Port == 8080 {
		c.Server.Port = 8081
	}
	c.Stream.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks struct rules and the cross-field constraints.
func (c *RelayConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	v := validation.New()
	v.Merge("", validation.Validate(c))
	v.Merge("server", c.Server.Validate())
	v.Timeout("stages.timeout", c.Stages.Timeout)
	v.Required("relay.url", c.Relay.URL)
	if c.Relay.URL != "" {
		v.URL("relay.url", c.Relay.URL, "ws", "wss")
	}
	return v.Validate()
}

func applyBufferDefaults(c *BuffersConfig) {
	if c.Frames == 0 {
		c.Frames = 4
	}
	if c.Results == 0 {
		c.Results = 4
	}
	if c.Relay == 0 {
		c.Relay = 4
	}
}
