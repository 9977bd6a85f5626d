package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Scan interval bounds enforced by the configuration layer. The poll
// coordinator trusts whatever interval it is handed.
const (
	MinScanInterval     = 10
	MaxScanInterval     = 300
	DefaultScanInterval = 30
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Govee     GoveeConfig     `mapstructure:"govee"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	warnings []string
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type AuthConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	PIN         string `mapstructure:"pin"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenExpiry int    `mapstructure:"token_expiry"`
}

// GoveeConfig carries the provider credentials and polling options.
type GoveeConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Timeout      int    `mapstructure:"timeout"`
	ScanInterval int    `mapstructure:"scan_interval"`
	ModelFilter  string `mapstructure:"model_filter"`
	IncludeAll   bool   `mapstructure:"include_all"`
	OverrideTTL  int    `mapstructure:"override_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type SchedulerConfig struct {
	Timezone       string `mapstructure:"timezone"`
	AuthProbeCron  string `mapstructure:"auth_probe_cron"`
	UsageResetCron string `mapstructure:"usage_reset_cron"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvPrefix("GOVEE_BRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Override specific values from env
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("auth.pin", "GOVEE_BRIDGE_PIN")
	viper.BindEnv("govee.api_key", "GOVEE_API_KEY")
	viper.BindEnv("govee.scan_interval", "GOVEE_SCAN_INTERVAL")
	viper.BindEnv("govee.model_filter", "GOVEE_MODEL_FILTER")
	viper.BindEnv("govee.include_all", "GOVEE_INCLUDE_ALL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.clampPolling()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8095)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.token_expiry", 86400)

	// Govee defaults
	viper.SetDefault("govee.base_url", "https://developer-api.govee.com")
	viper.SetDefault("govee.timeout", 10)
	viper.SetDefault("govee.scan_interval", DefaultScanInterval)
	viper.SetDefault("govee.model_filter", "")
	viper.SetDefault("govee.include_all", false)
	viper.SetDefault("govee.override_ttl", 60)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)

	// Scheduler defaults
	viper.SetDefault("scheduler.timezone", "UTC")
	viper.SetDefault("scheduler.auth_probe_cron", "0 */15 * * * *")
	viper.SetDefault("scheduler.usage_reset_cron", "0 0 0 * * *")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}

// clampPolling forces the scan interval into its allowed bounds, recording a
// warning instead of failing: an out-of-range interval in a config file
// should not keep the bridge from starting.
func (c *Config) clampPolling() {
	if c.Govee.ScanInterval < MinScanInterval {
		c.warnings = append(c.warnings, fmt.Sprintf(
			"govee.scan_interval %d below minimum, clamped to %d", c.Govee.ScanInterval, MinScanInterval))
		c.Govee.ScanInterval = MinScanInterval
	}
	if c.Govee.ScanInterval > MaxScanInterval {
		c.warnings = append(c.warnings, fmt.Sprintf(
			"govee.scan_interval %d above maximum, clamped to %d", c.Govee.ScanInterval, MaxScanInterval))
		c.Govee.ScanInterval = MaxScanInterval
	}
}

// Warnings returns non-fatal findings from loading, for the caller to log.
func (c *Config) Warnings() []string {
	return c.warnings
}

// ScanIntervalDuration returns the polling period as a duration.
func (c *GoveeConfig) ScanIntervalDuration() time.Duration {
	return time.Duration(c.ScanInterval) * time.Second
}

// TimeoutDuration returns the per-call API timeout as a duration.
func (c *GoveeConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// OverrideTTLDuration returns the optimistic override lifetime as a duration.
func (c *GoveeConfig) OverrideTTLDuration() time.Duration {
	return time.Duration(c.OverrideTTL) * time.Second
}

func (c *Config) Validate() error {
	var errors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	// Validate authentication configuration
	if c.Auth.Enabled && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here") {
		errors = append(errors, "auth.jwt_secret must be set to a secure value when enabled")
	}
	if c.Auth.Enabled && c.Auth.PIN == "" {
		errors = append(errors, "auth.pin is required when auth is enabled")
	}
	if c.Auth.Enabled && c.Auth.TokenExpiry <= 0 {
		errors = append(errors, "auth.token_expiry must be greater than 0 when enabled")
	}

	// Validate Govee configuration
	if c.Govee.APIKey == "" {
		errors = append(errors, "govee.api_key is required")
	}
	if c.Govee.BaseURL == "" {
		errors = append(errors, "govee.base_url is required")
	}
	if c.Govee.Timeout <= 0 {
		errors = append(errors, "govee.timeout must be greater than 0")
	}
	if c.Govee.OverrideTTL <= 0 {
		errors = append(errors, "govee.override_ttl must be greater than 0")
	}

	// Validate scheduler configuration
	if c.Scheduler.AuthProbeCron == "" {
		errors = append(errors, "scheduler.auth_probe_cron is required")
	}
	if c.Scheduler.UsageResetCron == "" {
		errors = append(errors, "scheduler.usage_reset_cron is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateScanInterval reports whether an interval from the options API is
// acceptable. Unlike file config, interactive callers get an error back
// rather than a silent clamp.
func ValidateScanInterval(seconds int) error {
	if seconds < MinScanInterval || seconds > MaxScanInterval {
		return fmt.Errorf("scan interval must be between %d and %d seconds", MinScanInterval, MaxScanInterval)
	}
	return nil
}
