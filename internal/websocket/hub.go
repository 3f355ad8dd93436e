// Package websocket pushes session events to the browser tabs that share a
// session, so every tab follows a logout, expiry or token refresh.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"league-console/internal/event"
)

// TypeConnected is the first frame a client receives once registered.
const TypeConnected = "session.connected"

type Hub struct {
	// Registered clients, grouped by the session they follow.
	sessions map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns.
	done chan struct{}

	bus event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
	}
}

// Run delivers bus events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe("websocket-hub")
	defer unsubscribe()
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

// Register hands client to the hub. It reports false when the hub has
// stopped, in which case the caller owns the connection.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.sessions[client.sessionID] = clients
	}
	clients[client] = struct{}{}

	hello, _ := json.Marshal(map[string]string{"type": TypeConnected, "session_id": client.sessionID})
	h.deliver(client, hello)
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
}

func (h *Hub) broadcast(e event.Event) {
	clients := h.sessions[e.SessionID]
	if len(clients) == 0 {
		return
	}

	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "error", err)
		return
	}

	for client := range clients {
		h.deliver(client, message)
	}
}

// deliver drops a client whose buffer is full rather than block the hub.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		slog.Warn("dropping slow websocket client", "session_id", client.sessionID)
		h.remove(client)
	}
}

func (h *Hub) closeAll() {
	for _, clients := range h.sessions {
		for client := range clients {
			close(client.send)
		}
	}
	h.sessions = make(map[string]map[*Client]struct{})
}
