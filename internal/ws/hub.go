package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event types broadcast on the document feed.
const (
	EventDocumentCreated  = "document.created"
	EventDocumentCanceled = "document.canceled"
	EventPaymentCreated   = "payment.created"
	EventPaymentCanceled  = "payment.canceled"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// orgEvent is an internal struct for routing events to specific organizations
type orgEvent struct {
	OrgID uuid.UUID
	Event Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by organization ID
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *orgEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *orgEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.orgID] == nil {
				h.rooms[client.orgID] = make(map[*Client]bool)
			}
			h.rooms[client.orgID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.orgID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.orgID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.OrgID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients in this organization's room
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.OrgID], client)
					if len(h.rooms[event.OrgID]) == 0 {
						delete(h.rooms, event.OrgID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToOrg sends an event to all clients subscribed to a specific organization
// This is the public API for handlers to broadcast events
func (h *Hub) BroadcastToOrg(orgID uuid.UUID, event Event) {
	h.broadcast <- &orgEvent{
		OrgID: orgID,
		Event: event,
	}
}
