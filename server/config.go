package server

import (
	"fmt"

	"github.com/kbukum/edgecam/security"
	"github.com/kbukum/edgecam/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host        string                `yaml:"host" mapstructure:"host"`
	Port        int                   `yaml:"port" mapstructure:"port"`
	ReadTimeout int                   `yaml:"read_timeout" mapstructure:"read_timeout"` // seconds
	IdleTimeout int                   `yaml:"idle_timeout" mapstructure:"idle_timeout"` // seconds
	CORS        middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
	Auth        AuthConfig            `yaml:"auth" mapstructure:"auth"`
	RateLimit   RateLimitConfig       `yaml:"rate_limit" mapstructure:"rate_limit"`
	// TLS serves HTTPS and wss when a certificate is set.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// AuthConfig enables JWT bearer auth on protected routes.
type AuthConfig struct {
	Enabled    bool                 `yaml:"enabled" mapstructure:"enabled"`
	JWT        middleware.JWTConfig `yaml:"jwt" mapstructure:"jwt"`
	QueryParam string               `yaml:"query_param" mapstructure:"query_param"`
}

// RateLimitConfig enables per-client rate limiting on protected routes.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	}
	if c.Auth.QueryParam == "" {
		c.Auth.QueryParam = "access_token"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 60
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.Auth.Enabled && c.Auth.JWT.Secret == "" {
		return fmt.Errorf("server.auth.jwt.secret is required when auth is enabled")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit values must be non-negative")
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("server.%w", err)
	}
	return nil
}
