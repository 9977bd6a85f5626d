package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/frostdev-ops/govee-bridge-go/pkg/utils"
	"github.com/frostdev-ops/govee-bridge-go/pkg/version"
)

// GetSystemInfo reports host details, resource usage and API accounting.
// GET /api/v1/system/info
func (h *Handlers) GetSystemInfo(c *gin.Context) {
	info := gin.H{
		"build":          version.GetBuildInfo(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"api_usage":      h.client.Usage(),
		"websocket":      h.wsHub.GetStats(),
	}

	if hostInfo, err := host.Info(); err == nil {
		info["host"] = gin.H{
			"hostname": hostInfo.Hostname,
			"os":       hostInfo.OS,
			"platform": hostInfo.Platform,
			"uptime":   hostInfo.Uptime,
		}
	} else {
		h.log.WithError(err).Debug("Host info unavailable")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info["memory"] = gin.H{
			"total_bytes":  vm.Total,
			"used_bytes":   vm.Used,
			"used_percent": vm.UsedPercent,
		}
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info["cpu"] = gin.H{"used_percent": percents[0]}
	}

	utils.SendSuccess(c, info)
}

// GetSystemStatus reports the bridge's runtime counters.
// GET /api/v1/system/status
func (h *Handlers) GetSystemStatus(c *gin.Context) {
	lastPoll, lastErr := h.coordinator.LastPoll()

	body := gin.H{
		"status":            "ok",
		"polling_status":    h.coordinator.Status(),
		"devices_tracked":   h.cache.Count(),
		"pending_overrides": h.cache.PendingCount(),
		"api_usage":         h.client.Usage(),
		"websocket":         h.wsHub.GetStats(),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}
	if !lastPoll.IsZero() {
		body["last_poll"] = lastPoll.UTC().Format(time.RFC3339)
	}
	if lastErr != "" {
		body["last_error"] = lastErr
	}

	c.JSON(http.StatusOK, body)
}
