package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client.
var ErrClientClosed = errors.New("client is closed")

// ClientInterface is what the hub needs to track and address a connection.
type ClientInterface interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Hub tracks live websocket connections by client ID. The teacher's
// dafibh-fortuna-backend hub groups clients by workspace for fan-out
// broadcast; GET /v1/chat/stream/ws has exactly one subscriber per chat
// turn; so this hub is generalized to a flat registry used for connection
// bookkeeping and graceful shutdown rather than group broadcast.
type Hub struct {
	clients map[string]ClientInterface
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]ClientInterface)}
}

// Register adds a client to the hub.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID()] = client
	log.Debug().Str("client_id", client.ID()).Msg("websocket client registered")
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID()]; ok {
		delete(h.clients, client.ID())
		log.Debug().Str("client_id", client.ID()).Msg("websocket client unregistered")
	}
}

// Send delivers an event to one registered client by ID, returning
// ErrClientClosed (wrapped) if the client is gone or its buffer is full.
func (h *Hub) Send(clientID string, event Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return ErrClientClosed
	}
	return client.Send(data)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
