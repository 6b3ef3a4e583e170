package stream

import (
	"context"
	stderrors "errors"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/observability"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/resilience"
)

// Encoder turns one item into one binary message.
type Encoder[T any] func(T) ([]byte, error)

// Stats counts a handler's traffic.
type Stats struct {
	Clients  int64  `json:"clients"`
	Sent     uint64 `json:"sent"`
	Pings    uint64 `json:"pings"`
	Dropped  uint64 `json:"dropped"`
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
}

// Handler streams items from a source to WebSocket clients. Clients share
// the source, so each item goes to exactly one of them.
type Handler[T any] struct {
	name   string
	src    pipeline.AsyncSource[T]
	encode Encoder[T]
	cfg    Config
	log    *logger.Logger

	upgrader websocket.Upgrader
	slots    *resilience.Bulkhead
	base     context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // guards closed and wg.Add against Close
	closed   bool
	wg       sync.WaitGroup

	clients  atomic.Int64
	sent     atomic.Uint64
	pings    atomic.Uint64
	dropped  atomic.Uint64
	accepted atomic.Uint64
	rejected atomic.Uint64
}

// NewHandler creates a handler named name draining src.
func NewHandler[T any](name string, src pipeline.AsyncSource[T], encode Encoder[T], cfg Config) *Handler[T] {
	cfg.ApplyDefaults()
	base, cancel := context.WithCancel(context.Background())
	h := &Handler[T]{
		name:   name,
		src:    src,
		encode: encode,
		cfg:    cfg,
		log:    logger.WithComponent("stream").WithFields(logger.Fields("stream", name)),
		base:   base,
		cancel: cancel,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	if cfg.MaxClients > 0 {
		h.slots = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          name,
			MaxConcurrent: cfg.MaxClients,
			OnReject:      func(string) { h.rejected.Add(1) },
		})
	}
	return h
}

func (h *Handler[T]) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// Handle is the gin handler.
func (h *Handler[T]) Handle(c *gin.Context) {
	if !h.enter() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	if h.slots != nil {
		release, err := h.slots.Acquire(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				errors.ServiceUnavailable(h.name).WithDetail("max_clients", h.cfg.MaxClients).ToResponse())
			return
		}
		defer release()
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	id := uuid.NewString()
	log := h.log.WithContext(c.Request.Context()).WithFields(logger.Fields(
		"client_id", id,
		logger.FieldRemote, c.Request.RemoteAddr,
	))
	h.accepted.Add(1)
	h.clients.Add(1)
	defer h.clients.Add(-1)
	log.Info("stream client connected")

	ctx, cancel := context.WithCancel(h.base)
	defer cancel()
	go h.drain(conn, cancel)

	reason := h.serve(ctx, conn, log)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode(reason), ""),
		time.Now().Add(time.Second))
	conn.Close()
	log.Info("stream client disconnected", logger.Fields(logger.FieldReason, reasonText(reason)))
}

// drain reads and discards client messages so control frames are handled,
// and cancels the stream when the client goes away.
func (h *Handler[T]) drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(h.cfg.ReadLimit)
	// A hijacked connection keeps the server's read deadline.
	_ = conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Handler[T]) serve(ctx context.Context, conn *websocket.Conn, log *logger.Logger) error {
	var limiter *rate.Limiter
	if h.cfg.MaxFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.MaxFPS), 1)
	}
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
		}
		item, err := h.src.Get(ctx, h.cfg.Timeout)
		switch {
		case stderrors.Is(err, buffer.ErrEmpty):
			h.pings.Add(1)
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return err
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("stream source failed", logger.Fields(logger.FieldError, err.Error()))
			return err
		}

		blob, err := h.encode(item)
		if err != nil {
			h.dropped.Add(1)
			log.Warn("dropping item that failed to encode", logger.Fields(logger.FieldError, err.Error()))
			continue
		}
		if err := h.write(ctx, conn, blob); err != nil {
			return err
		}
		h.sent.Add(1)
	}
}

func (h *Handler[T]) write(ctx context.Context, conn *websocket.Conn, blob []byte) error {
	_, span := observability.StartSpan(ctx, observability.SpanStreamWrite)
	defer span.End()
	span.SetAttributes(attribute.Int("message.size", len(blob)))

	if err := conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, blob)
}

// Close ends every open stream and waits for the handlers to return. New
// upgrades are refused afterwards.
func (h *Handler[T]) Close() {
	h.mu.Lock()
	h.closed = true
	h.cancel()
	h.mu.Unlock()
	h.wg.Wait()
}

// enter registers a client unless Close has begun.
func (h *Handler[T]) enter() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

// Name returns the handler name.
func (h *Handler[T]) Name() string { return h.name }

// Stats returns a snapshot of the handler's counters.
func (h *Handler[T]) Stats() Stats {
	return Stats{
		Clients:  h.clients.Load(),
		Sent:     h.sent.Load(),
		Pings:    h.pings.Load(),
		Dropped:  h.dropped.Load(),
		Accepted: h.accepted.Load(),
		Rejected: h.rejected.Load(),
	}
}

func closeCode(reason error) int {
	var closeErr *websocket.CloseError
	switch {
	case reason == nil, stderrors.As(reason, &closeErr):
		return websocket.CloseNormalClosure
	case stderrors.Is(reason, context.Canceled):
		return websocket.CloseGoingAway
	default:
		return websocket.CloseInternalServerErr
	}
}

func reasonText(reason error) string {
	if reason == nil || stderrors.Is(reason, context.Canceled) {
		return "closed"
	}
	return reason.Error()
}
