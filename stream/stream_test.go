package stream

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kbukum/edgecam/buffer"
	"github.com/kbukum/edgecam/codec"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/inference"
	"github.com/kbukum/edgecam/pipeline"
	"github.com/kbukum/edgecam/security"
	"github.com/kbukum/edgecam/security/tlstest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func payloadFor(n int) codec.Payload {
	return codec.Payload{
		Frame:       []byte(fmt.Sprintf("frame-%d", n)),
		Predictions: inference.PredictionSet{"n": inference.Vector(float64(n))},
	}
}

func newServer(t *testing.T, h *Handler[codec.Payload]) (*httptest.Server, string) {
	t.Helper()
	engine := gin.New()
	engine.GET("/ws/stream", h.Handle)
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"
}

func marshal(p codec.Payload) ([]byte, error) { return codec.Marshal(p), nil }

func TestHandlerToRemote(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](8)
	h := NewHandler("results", pipeline.ContextSource[codec.Payload](buf), marshal, Config{Timeout: 10 * time.Millisecond})
	_, url := newServer(t, h)

	remote := NewRemote(RemoteConfig{URL: url, Backlog: 8})
	ctx := context.Background()
	if err := remote.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	for i := 1; i <= 3; i++ {
		buf.Push(payloadFor(i))
	}
	for i := 1; i <= 3; i++ {
		p, err := remote.Get(ctx, time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if string(p.Frame) != fmt.Sprintf("frame-%d", i) {
			t.Errorf("expected frame-%d, got %s", i, p.Frame)
		}
		if p.Predictions["n"].Data[0] != float64(i) {
			t.Errorf("unexpected predictions %v", p.Predictions)
		}
	}
	if st := h.Stats(); st.Sent != 3 || st.Clients != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestHandler_PingsWhenSourceIsEmpty(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](1)
	h := NewHandler("idle", pipeline.ContextSource[codec.Payload](buf), marshal, Config{Timeout: 5 * time.Millisecond})
	_, url := newServer(t, h)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("expected a keepalive ping while the source is empty")
	}
	if h.Stats().Pings == 0 {
		t.Error("expected pings to be counted")
	}
}

func TestHandler_DropsItemsThatFailToEncode(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](4)
	encode := func(p codec.Payload) ([]byte, error) {
		if string(p.Frame) == "frame-1" {
			return nil, fmt.Errorf("bad frame")
		}
		return codec.Marshal(p), nil
	}
	h := NewHandler("lossy", pipeline.ContextSource[codec.Payload](buf), encode, Config{Timeout: 10 * time.Millisecond})
	_, url := newServer(t, h)

	remote := NewRemote(RemoteConfig{URL: url})
	ctx := context.Background()
	if err := remote.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	buf.Push(payloadFor(1))
	buf.Push(payloadFor(2))
	p, err := remote.Get(ctx, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(p.Frame) != "frame-2" {
		t.Errorf("expected frame-2, got %s", p.Frame)
	}
	if h.Stats().Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", h.Stats().Dropped)
	}
}

func TestRemote_ReportsLostConnection(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](1)
	h := NewHandler("closing", pipeline.ContextSource[codec.Payload](buf), marshal, Config{Timeout: 5 * time.Millisecond})
	_, url := newServer(t, h)

	remote := NewRemote(RemoteConfig{URL: url})
	ctx := context.Background()
	if err := remote.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	if _, err := remote.Get(ctx, 5*time.Millisecond); !stderrors.Is(err, buffer.ErrEmpty) {
		t.Fatalf("expected ErrEmpty while idle, got %v", err)
	}

	h.Close()
	_, err := remote.Get(ctx, time.Second)
	if !errors.IsCode(err, errors.ErrCodeReadFailed) {
		t.Errorf("expected READ_FAILED after server close, got %v", err)
	}
}

func TestRemote_OpenFailure(t *testing.T) {
	remote := NewRemote(RemoteConfig{URL: "ws://127.0.0.1:1/ws/stream", HandshakeTimeout: 100 * time.Millisecond})
	err := remote.Open(context.Background())
	if !errors.IsCode(err, errors.ErrCodeOpenFailed) {
		t.Errorf("expected OPEN_FAILED, got %v", err)
	}
	if _, err := remote.Get(context.Background(), 0); !errors.IsCode(err, errors.ErrCodeReadFailed) {
		t.Errorf("expected READ_FAILED before open, got %v", err)
	}
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](1)
	h := NewHandler("strict", pipeline.ContextSource[codec.Payload](buf), marshal, Config{AllowedOrigins: []string{"http://cam.local"}})
	_, url := newServer(t, h)

	header := http.Header{"Origin": {"http://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected upgrade to be refused")
	} else if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestHandler_RejectsBeyondMaxClients(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](1)
	h := NewHandler("capped", pipeline.ContextSource[codec.Payload](buf), marshal, Config{Timeout: 5 * time.Millisecond, MaxClients: 1})
	_, url := newServer(t, h)

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second client to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
	if h.Stats().Rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", h.Stats().Rejected)
	}
}

func TestRemote_OverTLS(t *testing.T) {
	certs := tlstest.NewCerts(t)
	buf, _ := buffer.New[codec.Payload](4)
	h := NewHandler("results", pipeline.ContextSource[codec.Payload](buf), marshal, Config{Timeout: 10 * time.Millisecond})
	engine := gin.New()
	engine.GET("/ws/stream", h.Handle)
	srv := httptest.NewUnstartedServer(engine)
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.Pair}}
	srv.StartTLS()
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	url := "wss" + strings.TrimPrefix(srv.URL, "https") + "/ws/stream"

	untrusted := NewRemote(RemoteConfig{URL: url})
	if err := untrusted.Open(context.Background()); !errors.IsCode(err, errors.ErrCodeOpenFailed) {
		t.Fatalf("expected an unknown CA to fail the handshake, got %v", err)
	}

	remote := NewRemote(RemoteConfig{URL: url, TLS: security.TLSConfig{CAFile: certs.CAFile}})
	if err := remote.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	buf.Push(payloadFor(7))
	p, err := remote.Get(context.Background(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(p.Frame) != "frame-7" {
		t.Errorf("expected frame-7, got %s", p.Frame)
	}
}

func TestHandler_CloseRacesIncomingClients(t *testing.T) {
	buf, _ := buffer.New[codec.Payload](1)
	h := NewHandler("closing", pipeline.ContextSource[codec.Payload](buf), marshal, Config{})

	request := func() int {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		c.Request = httptest.NewRequest(http.MethodGet, "/ws/stream", http.NoBody)
		h.Handle(c)
		return rr.Code
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				request()
			}
		}()
	}
	h.Close()
	wg.Wait()

	if code := request(); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after Close, got %d", code)
	}
}
