package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/dispatcher"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
	"github.com/frostdev-ops/govee-bridge-go/pkg/utils"
)

// GetDevices lists every tracked device with its merged state.
// GET /api/v1/devices
func (h *Handlers) GetDevices(c *gin.Context) {
	utils.SendSuccessWithMeta(c, h.cache.ReadAll(), gin.H{
		"count": h.cache.Count(),
	})
}

// GetDevice returns one device descriptor.
// GET /api/v1/devices/:id
func (h *Handlers) GetDevice(c *gin.Context) {
	device, ok := h.cache.Device(c.Param("id"))
	if !ok {
		utils.SendError(c, http.StatusNotFound, "Device not found")
		return
	}
	utils.SendSuccess(c, device)
}

// GetDeviceState returns one device's merged view: pending optimistic
// overrides win over the last confirmed poll.
// GET /api/v1/devices/:id/state
func (h *Handlers) GetDeviceState(c *gin.Context) {
	view, ok := h.cache.Read(c.Param("id"))
	if !ok {
		utils.SendError(c, http.StatusNotFound, "Device not found")
		return
	}
	utils.SendSuccess(c, view)
}

// commandRequest is the body of a control intent.
type commandRequest struct {
	Attribute string      `json:"attribute" binding:"required"`
	Value     interface{} `json:"value" binding:"required"`
}

// SendCommand accepts a control intent and dispatches it asynchronously.
// The 202 response carries the command ID; the outcome arrives as a
// command_result event.
// POST /api/v1/devices/:id/command
func (h *Handlers) SendCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Request must include attribute and value")
		return
	}

	attr, err := types.ParseCapability(req.Attribute)
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.dispatcher.SetAttribute(c.Request.Context(), c.Param("id"), attr, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, dispatcher.ErrDeviceNotFound):
			utils.SendError(c, http.StatusNotFound, "Device not found")
		case errors.Is(err, dispatcher.ErrNotControllable):
			utils.SendError(c, http.StatusConflict, "Device is not controllable")
		case dispatcher.IsUnsupportedCapability(err), dispatcher.IsValidationError(err):
			utils.SendError(c, http.StatusBadRequest, err.Error())
		default:
			utils.SendError(c, http.StatusInternalServerError, "Failed to dispatch command")
		}
		return
	}

	utils.SendAccepted(c, ticket)
}
