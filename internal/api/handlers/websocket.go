package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/govee-bridge-go/internal/websocket"
)

// WebSocketHandler upgrades the connection and hands it to the hub.
// GET /ws
func (h *Handlers) WebSocketHandler(hub *websocket.Hub) gin.HandlerFunc {
	return websocket.HandleWebSocketGin(hub)
}
