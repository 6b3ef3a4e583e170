package stream

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/codec"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/security"
)

// RemoteConfig configures a Remote.
type RemoteConfig struct {
	URL              string        `mapstructure:"url" validate:"omitempty,url"`
	Token            string        `mapstructure:"token"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	// Backlog is how many decoded payloads are held before the oldest is
	// evicted.
	Backlog int `mapstructure:"backlog" validate:"min=0"`
	// TLS configures wss connections.
	TLS security.TLSConfig `mapstructure:"tls"`
}

// ApplyDefaults fills zero values.
func (c *RemoteConfig) ApplyDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.Backlog == 0 {
		c.Backlog = 1
	}
}

// Remote reads a stream served by a Handler. It is a pipeline.AsyncSource
// of decoded payloads and a pipeline.Resource owning the connection.
type Remote struct {
	cfg RemoteConfig
	log *logger.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	inbox   *buffer.Async[codec.Payload]
	done    chan struct{}
	readErr error
}

// NewRemote creates a closed remote source.
func NewRemote(cfg RemoteConfig) *Remote {
	cfg.ApplyDefaults()
	return &Remote{
		cfg: cfg,
		log: logger.WithComponent("remote").WithFields(logger.Fields(logger.FieldSource, cfg.URL)),
	}
}

// Open dials the stream and starts reading it.
func (r *Remote) Open(ctx context.Context) error {
	inbox, err := buffer.NewAsync[codec.Payload](r.cfg.Backlog)
	if err != nil {
		return err
	}
	tlsCfg, err := r.cfg.TLS.Client()
	if err != nil {
		return errors.OpenFailed(r.cfg.URL, err)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: r.cfg.HandshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}
	header := http.Header{}
	if r.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	conn, resp, err := dialer.DialContext(ctx, r.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return errors.OpenFailed(r.cfg.URL, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn = conn
	r.inbox = inbox
	r.done = make(chan struct{})
	r.readErr = nil
	go r.read(conn, inbox, r.done)
	r.log.Info("remote stream connected")
	return nil
}

func (r *Remote) read(conn *websocket.Conn, inbox *buffer.Async[codec.Payload], done chan struct{}) {
	defer close(done)
	ctx := context.Background()
	for {
		kind, blob, err := conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			r.readErr = err
			r.mu.Unlock()
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		p, err := codec.Decode(blob)
		if err != nil {
			r.log.Warn("dropping undecodable payload", logger.Fields(logger.FieldError, err.Error()))
			continue
		}
		_ = inbox.Push(ctx, p)
	}
}

// Get returns the next payload, waiting up to timeout. It returns
// buffer.ErrEmpty on expiry and a READ_FAILED error once the connection
// is lost.
func (r *Remote) Get(ctx context.Context, timeout time.Duration) (codec.Payload, error) {
	r.mu.Lock()
	inbox, done := r.inbox, r.done
	r.mu.Unlock()
	if inbox == nil {
		return codec.Payload{}, errors.ReadFailed(r.cfg.URL, stderrors.New("remote stream is not open"))
	}

	// Buffered payloads are still delivered after the reader stops.
	if p, err := inbox.Get(ctx, 0); err == nil {
		return p, nil
	}
	select {
	case <-done:
		return codec.Payload{}, r.lost()
	default:
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := watch(done, cancel)
	defer stop()

	p, err := inbox.Get(waitCtx, timeout)
	if err != nil && ctx.Err() == nil && waitCtx.Err() != nil {
		return codec.Payload{}, r.lost()
	}
	return p, err
}

func (r *Remote) lost() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cause := r.readErr
	if cause == nil {
		cause = stderrors.New("connection closed")
	}
	return errors.ReadFailed(r.cfg.URL, cause)
}

// watch calls fn when done closes, until the returned stop is called.
func watch(done <-chan struct{}, fn func()) (stop func()) {
	quit := make(chan struct{})
	go func() {
		select {
		case <-done:
			fn()
		case <-quit:
		}
	}()
	return func() { close(quit) }
}

// Close sends a close frame, drops the connection and waits for the
// reader to exit.
func (r *Remote) Close() error {
	r.mu.Lock()
	conn, done := r.conn, r.done
	r.conn = nil
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()
	<-done
	r.log.Info("remote stream closed")
	return err
}
