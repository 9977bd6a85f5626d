// Package websocket pushes registry events to connected clients.
package websocket

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/metrics"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger  *logrus.Logger
	metrics *metrics.Collector

	mu    sync.RWMutex
	stats HubStats
}

// HubStats contains hub statistics for the health surface.
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logrus.Logger, collector *metrics.Collector) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		metrics:    collector,
		stats:      HubStats{LastActivity: time.Now()},
	}
}

// Run handles client registration, unregistration and broadcasting. Call on
// its own goroutine.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

// SubscribeRegistry forwards every registry event to connected clients. It
// returns the unsubscribe function.
func (h *Hub) SubscribeRegistry(reg *registry.Registry) func() {
	return reg.Subscribe(func(event types.Event) {
		h.BroadcastToAll(FromEvent(event))
	})
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetWebSocketClients(count)
	}

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": count,
	}).Info("WebSocket client connected")

	welcome := Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
		},
	}
	client.send <- welcome.ToJSON()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetWebSocketClients(count)
	}

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": count,
	}).Info("WebSocket client disconnected")
}

func (h *Hub) broadcastMessage(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.mu.Lock()
	h.stats.MessagesSent++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full; drop the connection. Called from
			// the Run goroutine, so go through unregisterClient directly — a
			// send on h.unregister here would block against ourselves.
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) sendHeartbeat() {
	h.BroadcastToAll(Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"clients": h.GetClientCount(),
		},
	})
}

// BroadcastToAll broadcasts a message to all connected clients.
func (h *Hub) BroadcastToAll(message Message) {
	data := message.ToJSON()
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast channel is full, message dropped")
	}
}

// GetStats returns current hub statistics.
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ConnectedClients = len(h.clients)
	return stats
}

// GetClientCount returns the current number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
