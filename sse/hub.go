package sse

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/kbukum/edgecam/logger"
)

// clientBacklog is how many messages a slow client may lag behind before
// new ones are dropped for it.
const clientBacklog = 64

// Message is one event routed through the hub.
type Message struct {
	Topic string
	Event string
	Data  []byte
}

// Client represents a connected SSE client.
type Client struct {
	id      string
	pattern string
	events  chan Message
}

// NewClient creates a client subscribed to topics matching pattern. An
// empty pattern subscribes to everything.
func NewClient(id, pattern string) *Client {
	if pattern == "" {
		pattern = "*"
	}
	return &Client{
		id:      id,
		pattern: pattern,
		events:  make(chan Message, clientBacklog),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Pattern returns the subscription glob.
func (c *Client) Pattern() string { return c.pattern }

// Events returns the channel for receiving events. It is closed when the
// client is unregistered or the hub stops.
func (c *Client) Events() <-chan Message { return c.events }

// Matches reports whether the client subscribes to topic.
func (c *Client) Matches(topic string) bool {
	ok, err := filepath.Match(c.pattern, topic)
	return err == nil && ok
}

// send queues msg and reports false if the client is too slow.
func (c *Client) send(msg Message) bool {
	select {
	case c.events <- msg:
		return true
	default:
		return false
	}
}

// Hub manages SSE client connections and message broadcasting.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates a new SSE hub. Call Run to start routing.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		done:       make(chan struct{}),
		log:        log.WithComponent("sse"),
	}
}

// Run routes messages until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", client.id, "total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", client.id, "total_clients", total))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.events)
		delete(h.clients, id)
	}
}

// Register adds a client. It reports false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. After Stop it is a no-op.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a message for delivery. When the hub backlog is full the
// message is dropped rather than stalling the caller.
func (h *Hub) Publish(topic, event string, data []byte) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- Message{Topic: topic, Event: event, Data: data}:
		h.published.Add(1)
	default:
		h.dropped.Add(1)
		h.log.Warn("event backlog full, dropping", logger.Fields(logger.FieldStage, topic, "event", event))
	}
}

func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.clients {
		if !client.Matches(msg.Topic) {
			continue
		}
		if !client.send(msg) {
			h.dropped.Add(1)
			h.log.Warn("client channel full, dropping", logger.Fields("client_id", id))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Published returns how many messages were accepted for delivery.
func (h *Hub) Published() uint64 { return h.published.Load() }

// Dropped returns how many deliveries were dropped for backlog.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

var _ Broadcaster = (*Hub)(nil)
