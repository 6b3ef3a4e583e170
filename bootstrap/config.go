package bootstrap

import (
	"github.com/kbukum/edgecam/config"
)

// Config is the constraint for service configuration types. Any struct that
// embeds config.ServiceConfig satisfies it via promoted methods, as long as
// its own ApplyDefaults/Validate call through to the embedded ones.
//
//	type InferenceConfig struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Server server.Config `mapstructure:"server"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
