// Package ws fans store change events out to connected dashboard and field
// clients over WebSocket. Delivery is push-based and in arrival order; slow
// consumers are disconnected rather than allowed to stall the feed.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Message is one change-feed frame: the collection name and the changed document.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub tracks connected clients and broadcasts feed messages to all of them.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	mu         sync.RWMutex
	log        zerolog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewHub creates a hub bound to the given lifetime context.
func NewHub(ctx context.Context, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 64),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes registrations and broadcasts until the context ends.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug().Str("client_id", client.ID).Msg("feed client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				h.log.Debug().Str("client_id", client.ID).Msg("feed client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- msg:
				default:
					go client.Close()
				}
			}
			h.mu.RUnlock()
		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast queues one message for every connected client. Never blocks the
// publisher: when the hub queue is full the frame is dropped with a warning,
// since clients always converge through subsequent document states.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("type", msg.Type).Msg("feed backlog full, dropping frame")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client connection and stops the hub.
func (h *Hub) Shutdown() {
	h.cancel()
	h.mu.Lock()
	for _, client := range h.clients {
		client.Close()
	}
	h.mu.Unlock()
}
