package govee

import "fmt"

// Provider command names and the values the turn command accepts.
const (
	CommandTurn       = "turn"
	CommandBrightness = "brightness"
	CommandColor      = "color"
	CommandColorTem   = "colorTem"

	ValueOn  = "on"
	ValueOff = "off"
)

// RawDevice is a device descriptor as the provider lists it.
type RawDevice struct {
	Device       string            `json:"device"`
	Model        string            `json:"model"`
	DeviceName   string            `json:"deviceName"`
	Controllable bool              `json:"controllable"`
	Retrievable  bool              `json:"retrievable"`
	SupportCmds  []string          `json:"supportCmds"`
	Properties   *DeviceProperties `json:"properties,omitempty"`
}

// DeviceProperties carries per-device metadata from the listing.
type DeviceProperties struct {
	ColorTem *ColorTemProperty `json:"colorTem,omitempty"`
}

// ColorTemProperty advertises the device's color temperature span.
type ColorTemProperty struct {
	Range *ColorTemRange `json:"range,omitempty"`
}

// ColorTemRange is the advertised Kelvin span.
type ColorTemRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DevicesResponse is the reply envelope from the device listing endpoint.
type DevicesResponse struct {
	Data struct {
		Devices []RawDevice `json:"devices"`
	} `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// StateResponse is the reply envelope from the state endpoint. Properties is
// a heterogeneous list of single-key objects.
type StateResponse struct {
	Data struct {
		Device     string                   `json:"device"`
		Model      string                   `json:"model"`
		Properties []map[string]interface{} `json:"properties"`
	} `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ColorValue is the color payload for the color command and state property.
type ColorValue struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ControlCommand is the cmd object of a control request.
type ControlCommand struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// ControlRequest is the body of a control call.
type ControlRequest struct {
	Device string         `json:"device"`
	Model  string         `json:"model"`
	Cmd    ControlCommand `json:"cmd"`
}

// ControlResponse is the reply envelope from the control endpoint.
type ControlResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// TurnCommand builds a power command.
func TurnCommand(on bool) ControlCommand {
	value := ValueOff
	if on {
		value = ValueOn
	}
	return ControlCommand{Name: CommandTurn, Value: value}
}

// BrightnessCommand builds a brightness command. Percent must already be in
// provider units 0-100.
func BrightnessCommand(percent int) ControlCommand {
	return ControlCommand{Name: CommandBrightness, Value: percent}
}

// ColorCommand builds a color command.
func ColorCommand(r, g, b int) ControlCommand {
	return ControlCommand{Name: CommandColor, Value: ColorValue{R: r, G: g, B: b}}
}

// ColorTemCommand builds a color temperature command in Kelvin.
func ColorTemCommand(kelvin int) ControlCommand {
	return ControlCommand{Name: CommandColorTem, Value: kelvin}
}

// DeviceState is the parsed state of one device. Pointer fields are nil when
// the provider omitted the property.
type DeviceState struct {
	Device         string
	Model          string
	Online         bool
	PowerOn        *bool
	Brightness     *int
	Color          *ColorValue
	ColorTemKelvin *int
}

// parseStateResponse flattens the provider's property list into a DeviceState.
func parseStateResponse(resp *StateResponse) (*DeviceState, error) {
	state := &DeviceState{
		Device: resp.Data.Device,
		Model:  resp.Data.Model,
	}

	for _, prop := range resp.Data.Properties {
		for key, value := range prop {
			switch key {
			case "online":
				if v, ok := value.(bool); ok {
					state.Online = v
				}
			case "powerState":
				if v, ok := value.(string); ok {
					on := v == ValueOn
					state.PowerOn = &on
				}
			case "brightness":
				if v, ok := toInt(value); ok {
					state.Brightness = &v
				}
			case "color":
				if m, ok := value.(map[string]interface{}); ok {
					color := ColorValue{}
					if r, ok := toInt(m["r"]); ok {
						color.R = r
					}
					if g, ok := toInt(m["g"]); ok {
						color.G = g
					}
					if b, ok := toInt(m["b"]); ok {
						color.B = b
					}
					state.Color = &color
				}
			case "colorTem", "colorTemInKelvin":
				if v, ok := toInt(value); ok {
					state.ColorTemKelvin = &v
				}
			}
		}
	}

	if state.Device == "" {
		return nil, fmt.Errorf("state response missing device identifier")
	}
	return state, nil
}

// toInt handles the numeric types JSON decoding can produce.
func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
