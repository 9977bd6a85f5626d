package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/coordinator"
)

// Health reports the bridge's liveness and polling status.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status := h.coordinator.Status()
	lastPoll, lastErr := h.coordinator.LastPoll()

	healthy := status != coordinator.StatusHalted
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	body := gin.H{
		"status":         map[bool]string{true: "healthy", false: "degraded"}[healthy],
		"polling_status": status,
		"device_count":   h.cache.Count(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if !lastPoll.IsZero() {
		body["last_poll"] = lastPoll.UTC().Format(time.RFC3339)
	}
	if lastErr != "" {
		body["last_error"] = lastErr
	}

	c.JSON(code, body)
}
