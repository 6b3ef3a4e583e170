package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig configures one side of a TLS connection.
type TLSConfig struct {
	// SkipVerify disables server certificate verification on clients.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`
	// CAFile verifies the server on clients and client certificates on
	// servers.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`
	// CertFile and KeyFile are the certificate this side presents.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
	// ServerName overrides the name verified on clients.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`
	// MinVersion defaults to TLS 1.2.
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// Validate checks that the certificate and key are set together.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	return nil
}

// IsEnabled reports whether any client setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != ""
}

// Serving reports whether a server should terminate TLS.
func (c *TLSConfig) Serving() bool {
	return c != nil && c.CertFile != "" && c.KeyFile != ""
}

// Client builds the config for dialing. It returns nil when nothing is
// configured, which leaves the dialer's defaults in place.
func (c *TLSConfig) Client() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	cfg := c.base()
	cfg.InsecureSkipVerify = c.SkipVerify
	cfg.ServerName = c.ServerName

	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if err := c.loadPair(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Server builds the config for a listener. It returns nil when no
// certificate is configured.
func (c *TLSConfig) Server() (*tls.Config, error) {
	if !c.Serving() {
		return nil, nil
	}
	cfg := c.base()
	if err := c.loadPair(cfg); err != nil {
		return nil, err
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

func (c *TLSConfig) base() *tls.Config {
	v := c.MinVersion
	if v == 0 {
		v = tls.VersionTLS12
	}
	return &tls.Config{MinVersion: v}
}

func (c *TLSConfig) loadPair(cfg *tls.Config) error {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return fmt.Errorf("tls: load key pair: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tls: read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tls: no certificates in %s", path)
	}
	return pool, nil
}
