// Package ws is the real-time session transport: one websocket per client,
// JSON events out, JSON commands in.
package ws

import (
	"encoding/json"
	"log"
	"sync"

	"thronehall/internal/lobby"
)

// Envelope frames every outbound push.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Hub tracks live connections and implements lobby.Notifier. Events are
// serialized once per send; a client whose buffer is full is dropped rather
// than allowed to stall the lobby.
type Hub struct {
	mu       sync.RWMutex
	clients  map[lobby.ConnID]*Client
	sessions *lobby.Service
}

var _ lobby.Notifier = (*Hub)(nil)

// NewHub creates an empty hub. Bind the lobby service before serving.
func NewHub() *Hub {
	return &Hub{clients: make(map[lobby.ConnID]*Client)}
}

// Bind attaches the session registry that inbound commands are routed to.
func (h *Hub) Bind(s *lobby.Service) {
	h.sessions = s
}

// Send implements lobby.Notifier.
func (h *Hub) Send(id lobby.ConnID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Printf("ws: marshal %s: %v", event, err)
		return
	}
	if !c.trySend(data) {
		// The client is gone or not draining its buffer; cut it loose.
		log.Printf("ws: dropping slow client %s", id)
		h.unregister(c)
		c.close()
	}
}

// register adds a client to the hub.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// unregister removes a client. Safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
}

// ClientCount reports how many connections are live.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
