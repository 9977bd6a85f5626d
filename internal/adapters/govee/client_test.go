package govee

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, testLogger())
	return client, server
}

func TestListDevices(t *testing.T) {
	var gotHeader string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(APIKeyHeader)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/devices", r.URL.Path)

		json.NewEncoder(w).Encode(DevicesResponse{
			Code:    200,
			Message: "Success",
			Data: struct {
				Devices []RawDevice `json:"devices"`
			}{
				Devices: []RawDevice{
					{
						Device:       "AA:BB:CC:DD:EE:FF:11:22",
						Model:        "H600D",
						DeviceName:   "Desk Strip",
						Controllable: true,
						Retrievable:  true,
						SupportCmds:  []string{"turn", "brightness", "color", "colorTem"},
						Properties: &DeviceProperties{
							ColorTem: &ColorTemProperty{
								Range: &ColorTemRange{Min: 2700, Max: 6500},
							},
						},
					},
				},
			},
		})
	})

	devices, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)

	assert.Equal(t, "test-key", gotHeader)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF:11:22", devices[0].Device)
	assert.Equal(t, "H600D", devices[0].Model)
	assert.True(t, devices[0].Controllable)
	assert.Equal(t, []string{"turn", "brightness", "color", "colorTem"}, devices[0].SupportCmds)
	assert.Equal(t, 2700, devices[0].Properties.ColorTem.Range.Min)
}

func TestListDevicesAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid API key"})
	})

	_, err := client.ListDevices(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, IsTransportError(err))
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestListDevicesRateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ListDevices(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.True(t, IsRateLimitError(err))
	assert.False(t, IsAuthError(err))
}

func TestListDevicesServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListDevices(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.False(t, IsRateLimitError(err))
}

func TestGetDeviceState(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/devices/state", r.URL.Path)
		assert.Equal(t, "AA:BB:CC:DD:EE:FF:11:22", r.URL.Query().Get("device"))
		assert.Equal(t, "H600D", r.URL.Query().Get("model"))

		resp := StateResponse{Code: 200, Message: "Success"}
		resp.Data.Device = "AA:BB:CC:DD:EE:FF:11:22"
		resp.Data.Model = "H600D"
		resp.Data.Properties = []map[string]interface{}{
			{"online": true},
			{"powerState": "on"},
			{"brightness": float64(82)},
			{"color": map[string]interface{}{"r": float64(255), "g": float64(16), "b": float64(0)}},
		}
		json.NewEncoder(w).Encode(resp)
	})

	state, err := client.GetDeviceState(context.Background(), "AA:BB:CC:DD:EE:FF:11:22", "H600D")
	require.NoError(t, err)

	assert.True(t, state.Online)
	require.NotNil(t, state.PowerOn)
	assert.True(t, *state.PowerOn)
	require.NotNil(t, state.Brightness)
	assert.Equal(t, 82, *state.Brightness)
	require.NotNil(t, state.Color)
	assert.Equal(t, ColorValue{R: 255, G: 16, B: 0}, *state.Color)
	assert.Nil(t, state.ColorTemKelvin)
}

func TestGetDeviceStateColorTemInKelvin(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := StateResponse{Code: 200}
		resp.Data.Device = "AA:BB:CC:DD:EE:FF:11:22"
		resp.Data.Properties = []map[string]interface{}{
			{"online": false},
			{"powerState": "off"},
			{"colorTemInKelvin": float64(4500)},
		}
		json.NewEncoder(w).Encode(resp)
	})

	state, err := client.GetDeviceState(context.Background(), "AA:BB:CC:DD:EE:FF:11:22", "H600D")
	require.NoError(t, err)

	assert.False(t, state.Online)
	require.NotNil(t, state.PowerOn)
	assert.False(t, *state.PowerOn)
	require.NotNil(t, state.ColorTemKelvin)
	assert.Equal(t, 4500, *state.ColorTemKelvin)
	assert.Nil(t, state.Brightness)
}

func TestGetDeviceStateNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetDeviceState(context.Background(), "unknown", "H600D")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestSendCommand(t *testing.T) {
	var gotBody ControlRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/devices/control", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(ControlResponse{Code: 200, Message: "Success"})
	})

	err := client.SendCommand(context.Background(), "AA:BB:CC:DD:EE:FF:11:22", "H600D", BrightnessCommand(50))
	require.NoError(t, err)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF:11:22", gotBody.Device)
	assert.Equal(t, "H600D", gotBody.Model)
	assert.Equal(t, "brightness", gotBody.Cmd.Name)
	assert.Equal(t, float64(50), gotBody.Cmd.Value)
}

func TestSendCommandRejectedByBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ControlResponse{Code: 400, Message: "Unsupported cmd value"})
	})

	err := client.SendCommand(context.Background(), "AA:BB:CC:DD:EE:FF:11:22", "H600D", TurnCommand(true))
	require.Error(t, err)
	assert.True(t, IsRejectedError(err))
	assert.Contains(t, err.Error(), "Unsupported cmd value")
}

func TestSendCommandRejectedByStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "body error"})
	})

	err := client.SendCommand(context.Background(), "AA:BB:CC:DD:EE:FF:11:22", "H600D", TurnCommand(false))
	require.Error(t, err)
	assert.True(t, IsRejectedError(err))
}

func TestSendCommandTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL}, testLogger())
	server.Close()

	err := client.SendCommand(context.Background(), "AA:BB:CC:DD:EE:FF:11:22", "H600D", TurnCommand(true))
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
}

func TestTurnCommandValues(t *testing.T) {
	assert.Equal(t, ControlCommand{Name: "turn", Value: "on"}, TurnCommand(true))
	assert.Equal(t, ControlCommand{Name: "turn", Value: "off"}, TurnCommand(false))
}

func TestValidateKey(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(DevicesResponse{Code: 200})
	})

	err := client.ValidateKey(context.Background())
	assert.True(t, IsAuthError(err))

	err = client.ValidateKey(context.Background())
	assert.NoError(t, err)
}

func TestUsageCounters(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(DevicesResponse{Code: 200})
	})

	for i := 0; i < 3; i++ {
		_, err := client.ListDevices(context.Background())
		require.NoError(t, err)
	}

	usage := client.Usage()
	assert.Equal(t, uint64(3), usage.TotalRequests)
	assert.Equal(t, uint64(3), usage.TodayRequests)

	reset := client.ResetDailyUsage()
	assert.Equal(t, uint64(3), reset)

	usage = client.Usage()
	assert.Equal(t, uint64(3), usage.TotalRequests)
	assert.Equal(t, uint64(0), usage.TodayRequests)
}
