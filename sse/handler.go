package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/edgecam/logger"
)

// DefaultKeepAlive is the interval between keep-alive comments. It stays
// below common proxy idle timeouts.
const DefaultKeepAlive = 30 * time.Second

// Handler returns a gin handler for the events endpoint. The "stages"
// query parameter selects a glob over stage names.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ServeSSE(hub, c.Writer, c.Request, uuid.NewString(), c.Query("stages"), DefaultKeepAlive)
	}
}

// ServeSSE streams hub messages matching pattern until the client goes
// away or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID, pattern string, keepAlive time.Duration) {
	log := hub.log.WithContext(r.Context()).WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Event streams are long-lived; the server write timeout must not apply.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("could not disable write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	client := NewClient(clientID, pattern)
	if !hub.Register(client) {
		http.Error(w, "event hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Stages: client.Pattern()})
	writeEvent(w, EventTypeConnected, connected)
	flusher.Flush()
	log.Debug("events client connected", logger.Fields(logger.FieldRemote, r.RemoteAddr, "stages", client.Pattern()))

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("events client disconnected", logger.Fields(logger.FieldReason, ctx.Err().Error()))
			return

		case msg, ok := <-client.Events():
			if !ok {
				return
			}
			writeEvent(w, msg.Event, msg.Data)
			flusher.Flush()

		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
