package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/govee-bridge-go/internal/adapters/govee"
	"github.com/frostdev-ops/govee-bridge-go/internal/config"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/coordinator"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/dispatcher"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/registry"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/state"
	"github.com/frostdev-ops/govee-bridge-go/internal/core/types"
	"github.com/frostdev-ops/govee-bridge-go/internal/websocket"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8095, Host: "127.0.0.1", Mode: "production"},
		Govee: config.GoveeConfig{
			APIKey:       "key",
			Timeout:      10,
			ScanInterval: 30,
			OverrideTTL:  60,
		},
	}
}

// newTestRouter wires the full stack against a fake provider endpoint. The
// coordinator is built but never started; handlers only read its status.
func newTestRouter(t *testing.T, providerHandler http.HandlerFunc) (http.Handler, *state.Cache) {
	t.Helper()
	logger := testLogger()
	cfg := testConfig()

	var baseURL string
	if providerHandler != nil {
		server := httptest.NewServer(providerHandler)
		t.Cleanup(server.Close)
		baseURL = server.URL
	} else {
		baseURL = "http://127.0.0.1:0"
	}

	client := govee.NewClient(govee.ClientConfig{APIKey: "key", BaseURL: baseURL}, logger)
	cache := state.NewCache(time.Minute, logger)
	reg := registry.NewRegistry(logger)
	coord := coordinator.New(client, cache, reg, nil, coordinator.Options{
		ScanInterval: 30 * time.Second,
	}, logger)
	disp := dispatcher.New(client, cache, reg, nil, time.Second, logger)
	hub := websocket.NewHub(logger, nil)

	router := NewRouter(cfg, logger, client, cache, coord, disp, reg, hub, nil)
	return router, cache
}

func registerDevice(cache *state.Cache) {
	cache.Register(&types.Device{
		ID:           "dev-1",
		Name:         "Desk Strip",
		Model:        "H600D",
		Controllable: true,
		Retrievable:  true,
		Capabilities: []types.Capability{
			types.CapabilityPower,
			types.CapabilityBrightness,
		},
		ColorTemRange: types.DefaultTemperatureRange(),
	})
	cache.UpsertConfirmed("dev-1", types.AttributeSnapshot{Power: true, BrightnessPercent: 20}, time.Now())
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "idle", body["polling_status"])
}

func TestGetDevices(t *testing.T) {
	router, cache := newTestRouter(t, nil)
	registerDevice(cache)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev-1")
}

func TestGetDeviceStateNotFound(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices/ghost/state", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendCommandAccepted(t *testing.T) {
	router, cache := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(govee.ControlResponse{Code: 200, Message: "Success"})
	})
	registerDevice(cache)

	body := strings.NewReader(`{"attribute":"brightness","value":128}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/dev-1/command", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "command_id")

	// Optimistic read-after-write through the API.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices/dev-1/state", nil))
	assert.Contains(t, rec.Body.String(), `"brightness_percent":50`)
}

func TestSendCommandUnsupportedAttribute(t *testing.T) {
	router, cache := newTestRouter(t, nil)
	registerDevice(cache)

	body := strings.NewReader(`{"attribute":"color","value":{"r":255,"g":0,"b":0}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/dev-1/command", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPollingOptionsRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := strings.NewReader(`{"scan_interval_seconds":60,"model_filter":"H600D","include_all":false}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/polling", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/polling", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scan_interval_seconds":60`)
	assert.Contains(t, rec.Body.String(), `"model_filter":"H600D"`)
}

func TestPollingOptionsRejectsBadInterval(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := strings.NewReader(`{"scan_interval_seconds":5}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/polling", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthProtectsRoutesWhenEnabled(t *testing.T) {
	logger := testLogger()
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, PIN: "1234", JWTSecret: "secret", TokenExpiry: 3600}

	client := govee.NewClient(govee.ClientConfig{APIKey: "key", BaseURL: "http://127.0.0.1:0"}, logger)
	cache := state.NewCache(time.Minute, logger)
	reg := registry.NewRegistry(logger)
	coord := coordinator.New(client, cache, reg, nil, coordinator.Options{ScanInterval: 30 * time.Second}, logger)
	disp := dispatcher.New(client, cache, reg, nil, time.Second, logger)
	hub := websocket.NewHub(logger, nil)
	router := NewRouter(cfg, logger, client, cache, coord, disp, reg, hub, nil)

	// No token: rejected.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Login with the PIN.
	rec = httptest.NewRecorder()
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"pin":"1234"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, loginReq)
	require.Equal(t, http.StatusOK, rec.Code)

	var loginBody struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginBody))
	require.NotEmpty(t, loginBody.Data.Token)

	// Token grants access.
	rec = httptest.NewRecorder()
	authedReq := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	authedReq.Header.Set("Authorization", "Bearer "+loginBody.Data.Token)
	router.ServeHTTP(rec, authedReq)
	assert.Equal(t, http.StatusOK, rec.Code)
}
