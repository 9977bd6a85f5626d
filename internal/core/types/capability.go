package types

// commandCapabilities maps provider command names onto the closed capability
// set. Command names the provider adds later fall through unrecognized.
var commandCapabilities = map[string]Capability{
	"turn":       CapabilityPower,
	"brightness": CapabilityBrightness,
	"color":      CapabilityColor,
	"colorTem":   CapabilityColorTemperature,
}

// CapabilityCommand returns the provider command name for a capability.
func CapabilityCommand(c Capability) string {
	for cmd, mapped := range commandCapabilities {
		if mapped == c {
			return cmd
		}
	}
	return ""
}

// DetectCapabilities derives a device's capability set from its advertised
// command list. Unknown commands are ignored; duplicates collapse. A device
// that advertises nothing recognizable gets an empty set and is still
// registered, just without controls.
func DetectCapabilities(supportCmds []string) []Capability {
	seen := make(map[Capability]bool, len(AllCapabilities))
	caps := make([]Capability, 0, len(supportCmds))
	for _, cmd := range supportCmds {
		c, ok := commandCapabilities[cmd]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		caps = append(caps, c)
	}
	return caps
}
