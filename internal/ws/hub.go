package ws

import (
	"encoding/json"
	"sync"
)

// Event is a change notification for one logical table. Consumers re-fetch
// their full source set on receipt; no incremental patch is carried beyond
// the payload hint. Delivery is at-least-once with no ordering guarantee
// across tables.
type Event struct {
	Table   string          `json:"table"`
	Event   string          `json:"event"` // INSERT, UPDATE or DELETE
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub maintains the set of connected clients and routes change events to the
// clients subscribed to the affected table.
type Hub struct {
	// Registered clients by table name
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop. Call as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for _, table := range client.tables {
				if h.rooms[table] == nil {
					h.rooms[table] = make(map[*Client]bool)
				}
				h.rooms[table][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			message, err := json.Marshal(event)
			if err != nil {
				h.mu.Unlock()
				continue
			}
			for client := range h.rooms[event.Table] {
				select {
				case client.send <- message:
				default:
					// Send buffer full; drop the slow client.
					h.dropClient(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// dropClient removes a client from every room it subscribed to.
// Caller must hold h.mu.
func (h *Hub) dropClient(client *Client) {
	var removed bool
	for _, table := range client.tables {
		clients, ok := h.rooms[table]
		if !ok {
			continue
		}
		if _, exists := clients[client]; exists {
			delete(clients, client)
			removed = true
			if len(clients) == 0 {
				delete(h.rooms, table)
			}
		}
	}
	if removed {
		close(client.send)
	}
}

// Notify broadcasts a change on the given table. Handlers call this after
// every successful mutation so list views can invalidate and re-fetch.
func (h *Hub) Notify(table, event string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = b
		}
	}
	h.broadcast <- Event{Table: table, Event: event, Payload: raw}
}
