package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
	"github.com/frostdev-ops/govee-bridge-go/pkg/version"
)

// diagnosticsSnapshot is the support-bundle dump: everything needed to
// reason about a state-coordination bug after the fact.
type diagnosticsSnapshot struct {
	GeneratedAt      time.Time               `json:"generated_at"`
	Build            *version.BuildInfo      `json:"build"`
	PollingStatus    string                  `json:"polling_status"`
	LastPoll         *time.Time              `json:"last_poll,omitempty"`
	LastError        string                  `json:"last_error,omitempty"`
	Devices          []*types.Device         `json:"devices"`
	Views            []*types.DeviceView     `json:"views"`
	PendingOverrides []state.PendingOverride `json:"pending_overrides"`
	APIUsage         interface{}             `json:"api_usage"`
}

// GetDiagnosticsSnapshot streams a gzip-compressed JSON dump of devices,
// merged views and pending overrides.
// GET /api/v1/diagnostics/snapshot
func (h *Handlers) GetDiagnosticsSnapshot(c *gin.Context) {
	lastPoll, lastErr := h.coordinator.LastPoll()

	snapshot := diagnosticsSnapshot{
		GeneratedAt:      time.Now().UTC(),
		Build:            version.GetBuildInfo(),
		PollingStatus:    string(h.coordinator.Status()),
		LastError:        lastErr,
		Devices:          h.cache.Devices(),
		Views:            h.cache.ReadAll(),
		PendingOverrides: h.cache.PendingOverrides(),
		APIUsage:         h.client.Usage(),
	}
	if !lastPoll.IsZero() {
		t := lastPoll.UTC()
		snapshot.LastPoll = &t
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Encoding", "gzip")
	c.Header("Content-Disposition", `attachment; filename="govee-bridge-diagnostics.json.gz"`)
	c.Status(http.StatusOK)

	gz := gzip.NewWriter(c.Writer)
	if err := json.NewEncoder(gz).Encode(snapshot); err != nil {
		h.log.WithError(err).Error("Failed to encode diagnostics snapshot")
		gz.Close()
		return
	}
	if err := gz.Close(); err != nil {
		h.log.WithError(err).Error("Failed to flush diagnostics snapshot")
	}
}
