package capture

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/kbukum/edgecam/logger"
)

// SnapshotConfig configures polling of a camera snapshot endpoint.
type SnapshotConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max" validate:"min=0"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	// MaxBytes caps the size of one snapshot body.
	MaxBytes int64 `mapstructure:"max_bytes" validate:"min=0"`
}

// ApplyDefaults fills zero values.
func (c *SnapshotConfig) ApplyDefaults() {
	if c.Interval == 0 {
		c.Interval = 200 * time.Millisecond
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryMax == 0 {
		c.RetryMax = 3
	}
	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = 100 * time.Millisecond
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = 2 * time.Second
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = 8 << 20
	}
}

// Snapshot is a FrameSource that polls a JPEG snapshot URL. Transient
// failures are retried with backoff before a read fails.
type Snapshot struct {
	cfg SnapshotConfig
	log *logger.Logger

	mu      sync.Mutex
	client  *retryablehttp.Client
	url     string
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSnapshot creates a closed snapshot source.
func NewSnapshot(cfg SnapshotConfig) *Snapshot {
	cfg.ApplyDefaults()
	return &Snapshot{cfg: cfg, log: logger.WithComponent("snapshot")}
}

// Open validates the snapshot URL and probes it once.
func (s *Snapshot) Open(ctx context.Context, descriptor string) error {
	u, err := url.Parse(descriptor)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported snapshot scheme %q", u.Scheme)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = s.cfg.RetryMax
	client.RetryWaitMin = s.cfg.RetryWaitMin
	client.RetryWaitMax = s.cfg.RetryWaitMax
	client.HTTPClient.Timeout = s.cfg.Timeout
	client.Logger = leveledLogger{s.log}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, descriptor, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed {
		return fmt.Errorf("snapshot endpoint returned %s", resp.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.client = client
	s.url = descriptor
	s.limiter = rate.NewLimiter(rate.Every(s.cfg.Interval), 1)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return nil
}

// Read waits for the next poll slot, fetches a snapshot and decodes it.
func (s *Snapshot) Read() (image.Image, error) {
	s.mu.Lock()
	client, target, limiter, ctx := s.client, s.url, s.limiter, s.ctx
	s.mu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("snapshot source is not open")
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("snapshot source closed: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/jpeg")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned %s", resp.Status)
	}
	img, err := jpeg.Decode(io.LimitReader(resp.Body, s.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return img, nil
}

// Close cancels any in-flight poll.
func (s *Snapshot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.client != nil {
		s.client.HTTPClient.CloseIdleConnections()
		s.client = nil
	}
	return nil
}

// leveledLogger routes retryablehttp's logging to the service logger.
type leveledLogger struct{ l *logger.Logger }

func (a leveledLogger) Error(msg string, kv ...interface{}) { a.l.Error(msg, logger.Fields(kv...)) }
func (a leveledLogger) Warn(msg string, kv ...interface{})  { a.l.Warn(msg, logger.Fields(kv...)) }
func (a leveledLogger) Info(msg string, kv ...interface{})  { a.l.Debug(msg, logger.Fields(kv...)) }
func (a leveledLogger) Debug(msg string, kv ...interface{}) { a.l.Debug(msg, logger.Fields(kv...)) }
