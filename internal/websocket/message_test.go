package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

func TestFromEventStateChanged(t *testing.T) {
	event := types.NewStateChangedEvent(types.StateChange{
		DeviceID:  "dev-1",
		Attribute: types.CapabilityBrightness,
		NewValue:  50,
	})

	msg := FromEvent(event)
	assert.Equal(t, MessageTypeStateChanged, msg.Type)
	assert.Equal(t, "dev-1", msg.Data["device_id"])
	assert.Equal(t, "brightness", msg.Data["attribute"])
	assert.Equal(t, 50, msg.Data["value"])
	assert.Equal(t, event.Timestamp, msg.Timestamp)
}

func TestFromEventCarriesEventData(t *testing.T) {
	event := types.NewPollingHaltedEvent("credentials rejected")

	msg := FromEvent(event)
	assert.Equal(t, MessageTypePollingHalted, msg.Type)
	assert.Equal(t, "credentials rejected", msg.Data["reason"])
}

func TestMessageToJSON(t *testing.T) {
	msg := Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{"clients": 3},
	}

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.ToJSON(), &decoded))
	assert.Equal(t, MessageTypeHeartbeat, decoded.Type)
	assert.EqualValues(t, 3, decoded.Data["clients"])
	assert.False(t, decoded.Timestamp.IsZero(), "ToJSON stamps unset timestamps")
}
