package types

import (
	"fmt"
	"time"
)

// Capability identifies a control a device supports. The set is closed:
// provider command names map onto these values and nothing else.
type Capability string

const (
	CapabilityPower            Capability = "power"
	CapabilityBrightness       Capability = "brightness"
	CapabilityColor            Capability = "color"
	CapabilityColorTemperature Capability = "colorTemperature"
)

// AllCapabilities lists every member of the closed capability set.
var AllCapabilities = []Capability{
	CapabilityPower,
	CapabilityBrightness,
	CapabilityColor,
	CapabilityColorTemperature,
}

// ParseCapability maps a consumer-facing attribute name onto the closed set.
func ParseCapability(name string) (Capability, error) {
	switch Capability(name) {
	case CapabilityPower, CapabilityBrightness, CapabilityColor, CapabilityColorTemperature:
		return Capability(name), nil
	}
	return "", fmt.Errorf("unknown attribute %q", name)
}

// RGB is a 24-bit color with each component in [0,255].
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Valid reports whether every component is within range.
func (c RGB) Valid() bool {
	return c.R >= 0 && c.R <= 255 && c.G >= 0 && c.G <= 255 && c.B >= 0 && c.B <= 255
}

// Default color temperature bounds used when a device does not advertise its
// own range.
const (
	DefaultMinColorTempKelvin = 2000
	DefaultMaxColorTempKelvin = 9000
)

// TemperatureRange is a device's advertised color temperature span in Kelvin.
type TemperatureRange struct {
	MinKelvin int `json:"min_kelvin"`
	MaxKelvin int `json:"max_kelvin"`
}

// DefaultTemperatureRange returns the fallback Kelvin bounds.
func DefaultTemperatureRange() TemperatureRange {
	return TemperatureRange{MinKelvin: DefaultMinColorTempKelvin, MaxKelvin: DefaultMaxColorTempKelvin}
}

// Contains reports whether a Kelvin value falls inside the range.
func (r TemperatureRange) Contains(kelvin int) bool {
	return kelvin >= r.MinKelvin && kelvin <= r.MaxKelvin
}

// AttributeSnapshot is the confirmed or merged state of one device.
// BrightnessPercent is always in provider units [0,100]; conversions from the
// consumer-facing 1-255 scale happen before values get here.
type AttributeSnapshot struct {
	Power                  bool `json:"power"`
	BrightnessPercent      int  `json:"brightness_percent"`
	ColorRGB               *RGB `json:"color_rgb,omitempty"`
	ColorTemperatureKelvin *int `json:"color_temperature_kelvin,omitempty"`
}

// Value returns the snapshot's value for one attribute. The second return is
// false when the attribute has never been set (optional attributes only).
func (s AttributeSnapshot) Value(attr Capability) (interface{}, bool) {
	switch attr {
	case CapabilityPower:
		return s.Power, true
	case CapabilityBrightness:
		return s.BrightnessPercent, true
	case CapabilityColor:
		if s.ColorRGB == nil {
			return nil, false
		}
		return *s.ColorRGB, true
	case CapabilityColorTemperature:
		if s.ColorTemperatureKelvin == nil {
			return nil, false
		}
		return *s.ColorTemperatureKelvin, true
	}
	return nil, false
}

// SetValue writes one attribute into the snapshot. It reports whether the
// value had the expected type for the attribute.
func (s *AttributeSnapshot) SetValue(attr Capability, value interface{}) bool {
	switch attr {
	case CapabilityPower:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		s.Power = v
	case CapabilityBrightness:
		v, ok := value.(int)
		if !ok {
			return false
		}
		s.BrightnessPercent = v
	case CapabilityColor:
		v, ok := value.(RGB)
		if !ok {
			return false
		}
		c := v
		s.ColorRGB = &c
	case CapabilityColorTemperature:
		v, ok := value.(int)
		if !ok {
			return false
		}
		k := v
		s.ColorTemperatureKelvin = &k
	default:
		return false
	}
	return true
}

// Equal compares two snapshots attribute by attribute.
func (s AttributeSnapshot) Equal(other AttributeSnapshot) bool {
	if s.Power != other.Power || s.BrightnessPercent != other.BrightnessPercent {
		return false
	}
	if (s.ColorRGB == nil) != (other.ColorRGB == nil) {
		return false
	}
	if s.ColorRGB != nil && *s.ColorRGB != *other.ColorRGB {
		return false
	}
	if (s.ColorTemperatureKelvin == nil) != (other.ColorTemperatureKelvin == nil) {
		return false
	}
	if s.ColorTemperatureKelvin != nil && *s.ColorTemperatureKelvin != *other.ColorTemperatureKelvin {
		return false
	}
	return true
}

// Clone returns a deep copy so cached snapshots never share pointers with
// callers.
func (s AttributeSnapshot) Clone() AttributeSnapshot {
	out := s
	if s.ColorRGB != nil {
		c := *s.ColorRGB
		out.ColorRGB = &c
	}
	if s.ColorTemperatureKelvin != nil {
		k := *s.ColorTemperatureKelvin
		out.ColorTemperatureKelvin = &k
	}
	return out
}

// Device describes one discovered light. The capability set is fixed at
// discovery for the session.
type Device struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Model         string           `json:"model"`
	Controllable  bool             `json:"controllable"`
	Retrievable   bool             `json:"retrievable"`
	Capabilities  []Capability     `json:"capabilities"`
	ColorTemRange TemperatureRange `json:"color_temp_range"`
}

// HasCapability reports whether the device advertises the given control.
func (d *Device) HasCapability(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the device descriptor.
func (d *Device) Clone() *Device {
	out := *d
	out.Capabilities = append([]Capability(nil), d.Capabilities...)
	return &out
}

// DeviceView is the merged, read-only answer to a state query: the device
// descriptor plus its current view with optimistic overrides applied.
type DeviceView struct {
	Device      *Device           `json:"device"`
	State       AttributeSnapshot `json:"state"`
	Online      bool              `json:"online"`
	LastRefresh time.Time         `json:"last_refresh"`
	Pending     []Capability      `json:"pending,omitempty"`
}

// StateChange records that the merged view for one attribute now answers
// differently than it did before a cache mutation.
type StateChange struct {
	DeviceID  string      `json:"device_id"`
	Attribute Capability  `json:"attribute"`
	NewValue  interface{} `json:"new_value"`
}

// Discrepancy reasons.
const (
	DiscrepancyExpired     = "expired"
	DiscrepancyUnconfirmed = "transport_unconfirmed"
)

// Discrepancy reports an optimistic override that was never confirmed by a
// poll. Informational, not an error.
type Discrepancy struct {
	DeviceID        string      `json:"device_id"`
	Attribute       Capability  `json:"attribute"`
	OptimisticValue interface{} `json:"optimistic_value"`
	ConfirmedValue  interface{} `json:"confirmed_value,omitempty"`
	Reason          string      `json:"reason"`
	IssuedAt        time.Time   `json:"issued_at"`
}
