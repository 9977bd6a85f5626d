package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCapabilities(t *testing.T) {
	tests := []struct {
		name     string
		commands []string
		expected []Capability
	}{
		{
			name:     "full feature light",
			commands: []string{"turn", "brightness", "color", "colorTem"},
			expected: []Capability{CapabilityPower, CapabilityBrightness, CapabilityColor, CapabilityColorTemperature},
		},
		{
			name:     "power and brightness only",
			commands: []string{"turn", "brightness"},
			expected: []Capability{CapabilityPower, CapabilityBrightness},
		},
		{
			name:     "unknown commands ignored",
			commands: []string{"turn", "mode", "scene", "musicMode"},
			expected: []Capability{CapabilityPower},
		},
		{
			name:     "duplicates collapse",
			commands: []string{"turn", "turn", "brightness"},
			expected: []Capability{CapabilityPower, CapabilityBrightness},
		},
		{
			name:     "nothing recognized",
			commands: []string{"scene", "musicMode"},
			expected: []Capability{},
		},
		{
			name:     "empty list",
			commands: []string{},
			expected: []Capability{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := DetectCapabilities(tt.commands)
			assert.Equal(t, tt.expected, caps)
		})
	}
}

func TestCapabilityCommand(t *testing.T) {
	assert.Equal(t, "turn", CapabilityCommand(CapabilityPower))
	assert.Equal(t, "brightness", CapabilityCommand(CapabilityBrightness))
	assert.Equal(t, "color", CapabilityCommand(CapabilityColor))
	assert.Equal(t, "colorTem", CapabilityCommand(CapabilityColorTemperature))
	assert.Equal(t, "", CapabilityCommand(Capability("bogus")))
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("brightness")
	assert.NoError(t, err)
	assert.Equal(t, CapabilityBrightness, c)

	_, err = ParseCapability("hue")
	assert.Error(t, err)
}

func TestHasCapability(t *testing.T) {
	device := &Device{
		ID:           "AA:BB:CC:DD:EE:FF:11:22",
		Capabilities: []Capability{CapabilityPower, CapabilityBrightness},
	}

	assert.True(t, device.HasCapability(CapabilityPower))
	assert.True(t, device.HasCapability(CapabilityBrightness))
	assert.False(t, device.HasCapability(CapabilityColor))
	assert.False(t, device.HasCapability(CapabilityColorTemperature))
}
