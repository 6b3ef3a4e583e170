package stream

import "time"

// Config tunes a stream handler.
type Config struct {
	// Timeout bounds each wait on the source before a keepalive ping.
	Timeout time.Duration `mapstructure:"timeout"`
	// WriteTimeout bounds each message write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxFPS caps messages per second per connection. Zero is unlimited.
	MaxFPS float64 `mapstructure:"max_fps" validate:"min=0"`
	// Quality is the JPEG quality of encoded frames.
	Quality int `mapstructure:"quality" validate:"min=0,max=100"`
	// AllowedOrigins restricts the Origin header on upgrade. Empty allows
	// any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// ReadLimit caps inbound client messages in bytes.
	ReadLimit int64 `mapstructure:"read_limit" validate:"min=0"`
	// MaxClients caps concurrent connections. Zero is unlimited.
	MaxClients int `mapstructure:"max_clients" validate:"min=0"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.Quality == 0 {
		c.Quality = 80
	}
	if c.ReadLimit == 0 {
		c.ReadLimit = 4096
	}
}
