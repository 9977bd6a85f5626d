package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListDevices(ctx context.Context) ([]govee.RawDevice, error) {
	args := m.Called(ctx)
	if devices := args.Get(0); devices != nil {
		return devices.([]govee.RawDevice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetDeviceState(ctx context.Context, deviceID, model string) (*govee.DeviceState, error) {
	args := m.Called(ctx, deviceID, model)
	if st := args.Get(0); st != nil {
		return st.(*govee.DeviceState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) SendCommand(ctx context.Context, deviceID, model string, cmd govee.ControlCommand) error {
	args := m.Called(ctx, deviceID, model, cmd)
	return args.Error(0)
}

func (m *mockAPI) ValidateKey(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func fullDevice() *types.Device {
	return &types.Device{
		ID:           "dev-1",
		Name:         "Desk Strip",
		Model:        "H600D",
		Controllable: true,
		Retrievable:  true,
		Capabilities: []types.Capability{
			types.CapabilityPower,
			types.CapabilityBrightness,
			types.CapabilityColor,
			types.CapabilityColorTemperature,
		},
		ColorTemRange: types.TemperatureRange{MinKelvin: 2700, MaxKelvin: 6500},
	}
}

func newTestDispatcher(t *testing.T, api govee.API, device *types.Device) (*Dispatcher, *state.Cache) {
	t.Helper()
	logger := testLogger()
	cache := state.NewCache(time.Minute, logger)
	if device != nil {
		cache.Register(device)
	}
	reg := registry.NewRegistry(logger)
	return New(api, cache, reg, nil, time.Second, logger), cache
}

func waitDone(t *testing.T, ticket *Ticket) error {
	t.Helper()
	select {
	case err := <-ticket.Done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("command never resolved")
		return nil
	}
}

func TestBrightnessOptimisticBeforeSend(t *testing.T) {
	send := make(chan struct{})
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", govee.BrightnessCommand(50)).
		Run(func(mock.Arguments) { <-send }).
		Return(nil)

	disp, cache := newTestDispatcher(t, api, fullDevice())

	ticket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityBrightness, 128)
	require.NoError(t, err)

	// Read-after-write sees the converted value while the send is blocked.
	view, ok := cache.Read("dev-1")
	require.True(t, ok)
	assert.Equal(t, 50, view.State.BrightnessPercent)
	assert.True(t, view.State.Power, "brightness implies power on")

	close(send)
	require.NoError(t, waitDone(t, ticket))
	disp.Stop()
	api.AssertExpectations(t)
}

func TestRejectedCommandReverts(t *testing.T) {
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", mock.Anything).
		Return(&govee.RejectedError{Code: 400, Message: "unsupported value"})

	disp, cache := newTestDispatcher(t, api, fullDevice())
	cache.UpsertConfirmed("dev-1", types.AttributeSnapshot{Power: true, BrightnessPercent: 20}, time.Now())

	ticket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityBrightness, 128)
	require.NoError(t, err)

	sendErr := waitDone(t, ticket)
	require.Error(t, sendErr)
	assert.True(t, govee.IsRejectedError(sendErr))

	view, _ := cache.Read("dev-1")
	assert.Equal(t, 20, view.State.BrightnessPercent, "rejection reverts to the pre-command value")
	assert.Zero(t, cache.PendingCount())
	disp.Stop()
}

func TestRejectionKeepsIndependentPowerOverride(t *testing.T) {
	powerSend := make(chan struct{})
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", govee.TurnCommand(true)).
		Run(func(mock.Arguments) { <-powerSend }).
		Return(nil)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", govee.BrightnessCommand(50)).
		Return(&govee.RejectedError{Code: 400, Message: "unsupported value"})

	disp, cache := newTestDispatcher(t, api, fullDevice())
	cache.UpsertConfirmed("dev-1", types.AttributeSnapshot{Power: false, BrightnessPercent: 20}, time.Now())

	// A power-on command whose send is still in flight.
	powerTicket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityPower, true)
	require.NoError(t, err)

	// A brightness command the provider refuses must revert only its own
	// overrides, not the pending power-on above.
	brightnessTicket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityBrightness, 128)
	require.NoError(t, err)
	require.Error(t, waitDone(t, brightnessTicket))

	view, ok := cache.Read("dev-1")
	require.True(t, ok)
	assert.True(t, view.State.Power, "the earlier power command's override must survive")
	assert.Equal(t, 20, view.State.BrightnessPercent)
	assert.Contains(t, view.Pending, types.CapabilityPower)

	close(powerSend)
	require.NoError(t, waitDone(t, powerTicket))
	disp.Stop()
	api.AssertExpectations(t)
}

func TestTransportErrorKeepsOverride(t *testing.T) {
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", mock.Anything).
		Return(&govee.TransportError{Op: "control", StatusCode: 503})

	disp, cache := newTestDispatcher(t, api, fullDevice())
	cache.UpsertConfirmed("dev-1", types.AttributeSnapshot{Power: true, BrightnessPercent: 20}, time.Now())

	ticket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityBrightness, 255)
	require.NoError(t, err)
	require.Error(t, waitDone(t, ticket))

	// The send may have landed; optimism stands until the next poll or TTL.
	view, _ := cache.Read("dev-1")
	assert.Equal(t, 100, view.State.BrightnessPercent)
	assert.NotZero(t, cache.PendingCount())
	disp.Stop()
}

func TestUnsupportedCapabilityNoNetworkCall(t *testing.T) {
	device := fullDevice()
	device.Capabilities = []types.Capability{types.CapabilityPower, types.CapabilityBrightness}

	api := new(mockAPI)
	disp, _ := newTestDispatcher(t, api, device)

	_, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityColor, map[string]interface{}{
		"r": 255.0, "g": 0.0, "b": 0.0,
	})
	require.Error(t, err)
	assert.True(t, IsUnsupportedCapability(err))
	api.AssertNumberOfCalls(t, "SendCommand", 0)
}

func TestValidationErrors(t *testing.T) {
	api := new(mockAPI)
	disp, _ := newTestDispatcher(t, api, fullDevice())
	ctx := context.Background()

	tests := []struct {
		name  string
		attr  types.Capability
		value interface{}
	}{
		{"brightness too high", types.CapabilityBrightness, 256},
		{"brightness zero", types.CapabilityBrightness, 0},
		{"brightness wrong type", types.CapabilityBrightness, "bright"},
		{"power wrong type", types.CapabilityPower, 1},
		{"color component out of range", types.CapabilityColor, types.RGB{R: 300, G: 0, B: 0}},
		{"color wrong shape", types.CapabilityColor, "red"},
		{"temperature below device range", types.CapabilityColorTemperature, 2000},
		{"temperature above device range", types.CapabilityColorTemperature, 7000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := disp.SetAttribute(ctx, "dev-1", tt.attr, tt.value)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}

	api.AssertNumberOfCalls(t, "SendCommand", 0)
}

func TestDeviceLookupErrors(t *testing.T) {
	api := new(mockAPI)
	disp, cache := newTestDispatcher(t, api, nil)

	_, err := disp.SetAttribute(context.Background(), "ghost", types.CapabilityPower, true)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	device := fullDevice()
	device.Controllable = false
	cache.Register(device)

	_, err = disp.SetAttribute(context.Background(), "dev-1", types.CapabilityPower, true)
	assert.ErrorIs(t, err, ErrNotControllable)
	api.AssertNumberOfCalls(t, "SendCommand", 0)
}

func TestPowerCommandWire(t *testing.T) {
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", govee.TurnCommand(false)).Return(nil)

	disp, cache := newTestDispatcher(t, api, fullDevice())
	cache.UpsertConfirmed("dev-1", types.AttributeSnapshot{Power: true}, time.Now())

	ticket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityPower, false)
	require.NoError(t, err)
	require.NoError(t, waitDone(t, ticket))

	view, _ := cache.Read("dev-1")
	assert.False(t, view.State.Power)
	disp.Stop()
	api.AssertExpectations(t)
}

func TestColorTemperatureUsesDeviceRange(t *testing.T) {
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", govee.ColorTemCommand(4000)).Return(nil)

	disp, cache := newTestDispatcher(t, api, fullDevice())

	ticket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityColorTemperature, 4000)
	require.NoError(t, err)
	require.NoError(t, waitDone(t, ticket))

	view, _ := cache.Read("dev-1")
	value, ok := view.State.Value(types.CapabilityColorTemperature)
	require.True(t, ok)
	assert.Equal(t, 4000, value)
	disp.Stop()
}

func TestColorFromJSONBody(t *testing.T) {
	api := new(mockAPI)
	api.On("SendCommand", mock.Anything, "dev-1", "H600D", govee.ColorCommand(255, 0, 64)).Return(nil)

	disp, cache := newTestDispatcher(t, api, fullDevice())

	ticket, err := disp.SetAttribute(context.Background(), "dev-1", types.CapabilityColor, map[string]interface{}{
		"r": 255.0, "g": 0.0, "b": 64.0,
	})
	require.NoError(t, err)
	require.NoError(t, waitDone(t, ticket))

	view, _ := cache.Read("dev-1")
	value, ok := view.State.Value(types.CapabilityColor)
	require.True(t, ok)
	assert.Equal(t, types.RGB{R: 255, G: 0, B: 64}, value)
	disp.Stop()
}
