package websocket

import (
	"encoding/json"
	"time"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

// Message types pushed to connected clients. The device_* and polling_*
// types mirror registry events one to one.
const (
	MessageTypeConnection = "connection"
	MessageTypeHeartbeat  = "heartbeat"
	MessageTypePong       = "pong"

	MessageTypeDeviceRegistered   = string(types.EventDeviceRegistered)
	MessageTypeDeviceRemoved      = string(types.EventDeviceRemoved)
	MessageTypeStateChanged       = string(types.EventStateChanged)
	MessageTypeDeviceAvailability = string(types.EventDeviceAvailability)
	MessageTypeDiscrepancy        = string(types.EventReconciliationDiscrepancy)
	MessageTypeCommandResult      = string(types.EventCommandResult)
	MessageTypePollingHalted      = string(types.EventPollingHalted)
	MessageTypePollingResumed     = string(types.EventPollingResumed)
)

// Message is the JSON envelope sent over the wire.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes.
func (m Message) ToJSON() []byte {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	data, _ := json.Marshal(m)
	return data
}

// FromEvent wraps a registry event in the wire envelope.
func FromEvent(event types.Event) Message {
	data := map[string]interface{}{}
	for k, v := range event.Data {
		data[k] = v
	}
	if event.DeviceID != "" {
		data["device_id"] = event.DeviceID
	}
	if event.Attribute != "" {
		data["attribute"] = string(event.Attribute)
	}
	if event.Value != nil {
		data["value"] = event.Value
	}

	return Message{
		Type:      string(event.Type),
		Data:      data,
		Timestamp: event.Timestamp,
	}
}
