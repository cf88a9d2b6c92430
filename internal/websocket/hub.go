package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a real-time notification broadcast to connected clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Filter decides whether a client receives a message. A nil Filter accepts everything.
type Filter func(Message) bool

// EntityFilter accepts only messages about the given entities.
func EntityFilter(entities ...string) Filter {
	return func(m Message) bool {
		for _, e := range entities {
			if m.Entity == e {
				return true
			}
		}
		return false
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.RegisterWithGreeting(c, nil)
}

// RegisterWithGreeting queues greet's message to c and adds c to the hub
// while holding the hub lock, so no broadcast can reach c ahead of the
// greeting or fall between the two. greet runs under that lock and must not
// wait on anything a Broadcast caller may be holding.
func (h *Hub) RegisterWithGreeting(c *Client, greet func() (Message, bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if greet != nil {
		if msg, ok := greet(); ok {
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("marshal greeting", "error", err)
			} else {
				c.send <- data
			}
		}
	}
	h.clients[c] = struct{}{}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client whose filter accepts it. A
// client whose buffer is full is disconnected; on reconnect its greeting
// carries the state it missed.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if c.filter != nil && !c.filter(msg) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("disconnecting slow websocket client", "type", msg.Type)
		h.Unregister(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
