package govee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// APIKeyHeader is the provider's credential header field.
	APIKeyHeader = "Govee-API-Key"

	defaultBaseURL = "https://developer-api.govee.com"
	defaultTimeout = 10 * time.Second

	devicesEndpoint = "/v1/devices"
	stateEndpoint   = "/v1/devices/state"
	controlEndpoint = "/v1/devices/control"
)

// API is the outbound device API surface. Callers own retry and caching
// policy; the client only classifies failures.
type API interface {
	ListDevices(ctx context.Context) ([]RawDevice, error)
	GetDeviceState(ctx context.Context, deviceID, model string) (*DeviceState, error)
	SendCommand(ctx context.Context, deviceID, model string, cmd ControlCommand) error
	ValidateKey(ctx context.Context) error
}

// ClientConfig carries the provider credentials and transport settings.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// UsageStats is a snapshot of the client's request accounting.
type UsageStats struct {
	TotalRequests uint64    `json:"total_requests"`
	TodayRequests uint64    `json:"today_requests"`
	CountingSince time.Time `json:"counting_since"`
}

// Client talks to the Govee developer API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Logger

	usageMu    sync.Mutex
	usageTotal uint64
	usageToday uint64
	usageSince time.Time
}

// NewClient creates a Govee API client.
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		logger:     logger,
		usageSince: time.Now(),
	}
}

// ListDevices fetches every device descriptor on the account.
func (c *Client) ListDevices(ctx context.Context) ([]RawDevice, error) {
	var resp DevicesResponse
	if err := c.doRequest(ctx, http.MethodGet, devicesEndpoint, nil, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, &TransportError{Op: "list devices", StatusCode: resp.Code}
	}

	c.logger.WithField("count", len(resp.Data.Devices)).Debug("Listed Govee devices")
	return resp.Data.Devices, nil
}

// GetDeviceState fetches and parses the polled state of one device.
func (c *Client) GetDeviceState(ctx context.Context, deviceID, model string) (*DeviceState, error) {
	query := url.Values{}
	query.Set("device", deviceID)
	query.Set("model", model)

	var resp StateResponse
	if err := c.doRequest(ctx, http.MethodGet, stateEndpoint, query, nil, &resp); err != nil {
		if IsNotFoundError(err) {
			return nil, &NotFoundError{DeviceID: deviceID}
		}
		return nil, err
	}

	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, &TransportError{Op: "get state", StatusCode: resp.Code}
	}

	state, err := parseStateResponse(&resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state for %s: %w", deviceID, err)
	}
	return state, nil
}

// SendCommand issues one control command. The provider acknowledges with a
// status only, never a state snapshot.
func (c *Client) SendCommand(ctx context.Context, deviceID, model string, cmd ControlCommand) error {
	body := ControlRequest{
		Device: deviceID,
		Model:  model,
		Cmd:    cmd,
	}

	var resp ControlResponse
	if err := c.doRequest(ctx, http.MethodPut, controlEndpoint, nil, body, &resp); err != nil {
		return err
	}

	if resp.Code != 0 && resp.Code != http.StatusOK {
		return &RejectedError{Code: resp.Code, Message: resp.Message}
	}

	c.logger.WithFields(logrus.Fields{
		"device":  deviceID,
		"command": cmd.Name,
	}).Debug("Govee command acknowledged")
	return nil
}

// ValidateKey probes the credentials with a device listing.
func (c *Client) ValidateKey(ctx context.Context) error {
	_, err := c.ListDevices(ctx)
	return err
}

// Usage returns a snapshot of the request counters.
func (c *Client) Usage() UsageStats {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()
	return UsageStats{
		TotalRequests: c.usageTotal,
		TodayRequests: c.usageToday,
		CountingSince: c.usageSince,
	}
}

// ResetDailyUsage zeroes the per-day counter and returns the value it held.
func (c *Client) ResetDailyUsage() uint64 {
	c.usageMu.Lock()
	defer c.usageMu.Unlock()
	count := c.usageToday
	c.usageToday = 0
	return count
}

func (c *Client) recordRequest() {
	c.usageMu.Lock()
	c.usageTotal++
	c.usageToday++
	c.usageMu.Unlock()
}

// doRequest performs one HTTP call and decodes the reply into out. Failures
// come back classified; the caller decides what to do with them.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	op := fmt.Sprintf("%s %s", method, path)

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(APIKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.recordRequest()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if err := c.classifyStatus(op, resp.StatusCode, respBody); err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return nil
}

// classifyStatus maps an HTTP status onto the error taxonomy.
func (c *Client) classifyStatus(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	message := extractMessage(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{StatusCode: status, Message: message}
	case status == http.StatusNotFound:
		return &NotFoundError{}
	case status == http.StatusTooManyRequests:
		c.logger.WithField("op", op).Warn("Govee API rate limit hit")
		return &TransportError{Op: op, StatusCode: status, RateLimited: true}
	case status >= 500:
		return &TransportError{Op: op, StatusCode: status}
	default:
		return &RejectedError{Code: status, Message: message}
	}
}

// extractMessage pulls the provider's message field out of an error body.
func extractMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Message
}
