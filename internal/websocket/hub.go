package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"shopping-portal/internal/domain"
	"shopping-portal/internal/observability"
)

// Message types pushed to browsers
const (
	TypeNotice  = "notice"
	TypeRefresh = "refresh"
)

// ServerMessage is the JSON frame sent to every connected page
type ServerMessage struct {
	Type    string            `json:"type"`
	Kind    domain.NoticeKind `json:"kind,omitempty"`
	Message string            `json:"message,omitempty"`
}

// BroadcastMessage represents a message to be broadcast
type BroadcastMessage struct {
	Type    string
	Payload []byte
}

// Hub maintains the connected pages and pushes notices to all of them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Broadcast channel
	broadcast chan *BroadcastMessage

	// Register client
	register chan *Client

	// Unregister client
	unregister chan *Client

	// Shutdown signal
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *BroadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case client := <-h.register:
			h.clients[client] = true
			observability.WebSocketConnectionsActive.Inc()
			slog.Info("client registered", slog.String("client_id", client.id))

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message.Payload:
					observability.WebSocketMessagesSent.WithLabelValues(message.Type).Inc()
				default:
					// Client's send buffer is full, drop it
					h.unregisterClient(client)
				}
			}
		}
	}
}

// unregisterClient removes a client and closes its send channel.
// Only the hub goroutine closes send, and only while the client is registered.
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	observability.WebSocketConnectionsActive.Dec()
	slog.Info("client unregistered", slog.String("client_id", client.id))
}

// shutdown performs graceful cleanup of all connections
func (h *Hub) shutdown() {
	close(h.done)

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		observability.WebSocketConnectionsActive.Dec()
		slog.Info("closed client connection", slog.String("client_id", client.id))
	}

	slog.Info("hub shutdown complete")
}

// Broadcast queues a raw frame for every client. It is a no-op once the
// hub has stopped.
func (h *Hub) Broadcast(msgType string, payload []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{Type: msgType, Payload: payload}:
	case <-h.done:
	}
}

// Notify pushes a notice to every connected page
func (h *Hub) Notify(ctx context.Context, n domain.Notice) {
	h.send(ctx, ServerMessage{Type: TypeNotice, Kind: n.Kind, Message: n.Message})
}

// Refresh tells every connected page to reload its view
func (h *Hub) Refresh(ctx context.Context) {
	h.send(ctx, ServerMessage{Type: TypeRefresh})
}

func (h *Hub) send(ctx context.Context, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		observability.FromContext(ctx).Error("failed to marshal server message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}
	h.Broadcast(msg.Type, data)
}

// Register registers a client with the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
