// Package config loads service configuration from a YAML file, an
// optional .env file and the environment, in that order of precedence
// (environment wins).
//
// Service configs embed ServiceConfig and are filled by LoadConfig:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Capture CaptureConfig `yaml:"capture" mapstructure:"capture"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("edgecam", &cfg)
//
// Every mapstructure key can be overridden by an environment variable
// named PREFIX_SECTION_KEY, e.g. EDGECAM_CAPTURE_GENERATOR_FPS=5. The
// prefix defaults to the upper-cased service name.
package config
