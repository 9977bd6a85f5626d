package types

import "time"

// EventType identifies a registry event.
type EventType string

const (
	EventDeviceRegistered          EventType = "device_registered"
	EventDeviceRemoved             EventType = "device_removed"
	EventStateChanged              EventType = "state_changed"
	EventDeviceAvailability        EventType = "device_availability"
	EventReconciliationDiscrepancy EventType = "reconciliation_discrepancy"
	EventCommandResult             EventType = "command_result"
	EventPollingHalted             EventType = "polling_halted"
	EventPollingResumed            EventType = "polling_resumed"
)

// Event is the envelope pushed to registry subscribers.
type Event struct {
	Type      EventType              `json:"type"`
	DeviceID  string                 `json:"device_id,omitempty"`
	Attribute Capability             `json:"attribute,omitempty"`
	Value     interface{}            `json:"value,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewDeviceRegisteredEvent announces a newly discovered device.
func NewDeviceRegisteredEvent(device *Device) Event {
	return Event{
		Type:     EventDeviceRegistered,
		DeviceID: device.ID,
		Data: map[string]interface{}{
			"name":         device.Name,
			"model":        device.Model,
			"capabilities": device.Capabilities,
		},
		Timestamp: time.Now(),
	}
}

// NewDeviceRemovedEvent announces that a device left the account or filter.
func NewDeviceRemovedEvent(deviceID string) Event {
	return Event{
		Type:      EventDeviceRemoved,
		DeviceID:  deviceID,
		Timestamp: time.Now(),
	}
}

// NewStateChangedEvent carries one attribute whose merged view changed.
func NewStateChangedEvent(change StateChange) Event {
	return Event{
		Type:      EventStateChanged,
		DeviceID:  change.DeviceID,
		Attribute: change.Attribute,
		Value:     change.NewValue,
		Timestamp: time.Now(),
	}
}

// NewAvailabilityEvent carries an online/offline transition.
func NewAvailabilityEvent(deviceID string, online bool) Event {
	return Event{
		Type:      EventDeviceAvailability,
		DeviceID:  deviceID,
		Value:     online,
		Timestamp: time.Now(),
	}
}

// NewDiscrepancyEvent reports an optimistic override that expired or could
// not be confirmed.
func NewDiscrepancyEvent(d Discrepancy) Event {
	return Event{
		Type:      EventReconciliationDiscrepancy,
		DeviceID:  d.DeviceID,
		Attribute: d.Attribute,
		Value:     d.OptimisticValue,
		Data: map[string]interface{}{
			"reason":          d.Reason,
			"confirmed_value": d.ConfirmedValue,
			"issued_at":       d.IssuedAt,
		},
		Timestamp: time.Now(),
	}
}

// NewCommandResultEvent reports the outcome of an asynchronous send.
func NewCommandResultEvent(commandID, deviceID string, attr Capability, success bool, errMsg string) Event {
	data := map[string]interface{}{
		"command_id": commandID,
		"success":    success,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	return Event{
		Type:      EventCommandResult,
		DeviceID:  deviceID,
		Attribute: attr,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewPollingHaltedEvent signals that polling stopped on an auth failure.
func NewPollingHaltedEvent(reason string) Event {
	return Event{
		Type:      EventPollingHalted,
		Data:      map[string]interface{}{"reason": reason},
		Timestamp: time.Now(),
	}
}

// NewPollingResumedEvent signals that polling restarted.
func NewPollingResumedEvent() Event {
	return Event{
		Type:      EventPollingResumed,
		Timestamp: time.Now(),
	}
}
