package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/govee-bridge-go/internal/config"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/coordinator"
	"github.com/frostdev-ops/govee-bridge-go/pkg/utils"
)

// pollingOptions is the wire form of the runtime polling parameters.
type pollingOptions struct {
	ScanIntervalSeconds int    `json:"scan_interval_seconds"`
	ModelFilter         string `json:"model_filter"`
	IncludeAll          bool   `json:"include_all"`
}

// GetPolling returns the active polling options and schedule status.
// GET /api/v1/polling
func (h *Handlers) GetPolling(c *gin.Context) {
	opts := h.coordinator.Options()
	lastPoll, _ := h.coordinator.LastPoll()

	body := gin.H{
		"options": pollingOptions{
			ScanIntervalSeconds: int(opts.ScanInterval / time.Second),
			ModelFilter:         opts.ModelFilter,
			IncludeAll:          opts.IncludeAll,
		},
		"status": h.coordinator.Status(),
	}
	if !lastPoll.IsZero() {
		body["last_poll"] = lastPoll.UTC().Format(time.RFC3339)
	}
	utils.SendSuccess(c, body)
}

// UpdatePolling replaces the polling options. Takes effect on the next
// cycle, no restart. An out-of-range interval is rejected, not clamped:
// unlike a config file, an interactive caller can be told.
// PUT /api/v1/polling
func (h *Handlers) UpdatePolling(c *gin.Context) {
	var req pollingOptions
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid polling options")
		return
	}

	if err := config.ValidateScanInterval(req.ScanIntervalSeconds); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	h.coordinator.UpdateOptions(coordinator.Options{
		ScanInterval: time.Duration(req.ScanIntervalSeconds) * time.Second,
		ModelFilter:  req.ModelFilter,
		IncludeAll:   req.IncludeAll,
	})

	// An operator updating options is a deliberate retry signal. Resume
	// kicks exactly one cycle; a still-bad key halts again immediately.
	if h.coordinator.Halted() {
		h.coordinator.Resume()
	}

	utils.SendSuccess(c, req)
}
