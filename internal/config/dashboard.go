package config

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical dashboard defaults file.
const DefaultConfigPath = "config/dashboard.defaults.json"

// Built-in fallbacks used by the Get* accessors when a field is unset.
const (
	DefaultFeedURL         = "https://drone-gemastik15.herokuapp.com/api/drone"
	DefaultPollInterval    = time.Second
	DefaultFetchTimeout    = 5 * time.Second
	DefaultWindowSize      = 11
	DefaultSwitchThreshold = 13
	DefaultFallbackLat     = -6.365232
	DefaultFallbackLng     = 106.824506
	DefaultMQTTTopic       = "dashboard/pose"
	DefaultMQTTClientID    = "flight-dashboard"
)

// DashboardConfig is the root configuration for the telemetry dashboard.
// Every field is optional; omitted fields fall back to the defaults above,
// so partial files are safe.
type DashboardConfig struct {
	// Feed
	FeedURL      *string `json:"feed_url,omitempty"`
	PollInterval *string `json:"poll_interval,omitempty"` // duration string like "1s"
	FetchTimeout *string `json:"fetch_timeout,omitempty"` // duration string like "5s"

	// Windowing
	WindowSize      *int `json:"window_size,omitempty"`
	SwitchThreshold *int `json:"switch_threshold,omitempty"`

	// Presentation
	FallbackLat        *float64 `json:"fallback_lat,omitempty"`
	FallbackLng        *float64 `json:"fallback_lng,omitempty"`
	LabelTimezone      *string  `json:"label_timezone,omitempty"` // IANA name; empty means process local
	InitialTargetCount *int     `json:"initial_target_count,omitempty"`

	// Pose fan-out (disabled when broker is empty)
	MQTTBroker   *string `json:"mqtt_broker,omitempty"`
	MQTTTopic    *string `json:"mqtt_topic,omitempty"`
	MQTTClientID *string `json:"mqtt_client_id,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }

// EmptyDashboardConfig returns a config with every field unset.
func EmptyDashboardConfig() *DashboardConfig {
	return &DashboardConfig{}
}

// LoadDashboardConfig loads a DashboardConfig from a JSON file. The path must
// have a .json extension and the file must be under 1MB.
func LoadDashboardConfig(path string) (*DashboardConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDashboardConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Intended for test
// setup; panics when the file cannot be found.
func MustLoadDefaultConfig() *DashboardConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadDashboardConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that every set field holds a usable value.
func (c *DashboardConfig) Validate() error {
	if c.FeedURL != nil {
		if err := validateFeedURL(*c.FeedURL); err != nil {
			return err
		}
	}

	for name, v := range map[string]*string{
		"poll_interval": c.PollInterval,
		"fetch_timeout": c.FetchTimeout,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.WindowSize != nil && *c.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", *c.WindowSize)
	}
	if c.SwitchThreshold != nil && *c.SwitchThreshold < 1 {
		return fmt.Errorf("switch_threshold must be at least 1, got %d", *c.SwitchThreshold)
	}

	if c.FallbackLat != nil {
		if v := *c.FallbackLat; math.IsNaN(v) || v < -90 || v > 90 {
			return fmt.Errorf("fallback_lat must be between -90 and 90, got %f", v)
		}
	}
	if c.FallbackLng != nil {
		if v := *c.FallbackLng; math.IsNaN(v) || v < -180 || v > 180 {
			return fmt.Errorf("fallback_lng must be between -180 and 180, got %f", v)
		}
	}

	if c.LabelTimezone != nil && *c.LabelTimezone != "" {
		if _, err := time.LoadLocation(*c.LabelTimezone); err != nil {
			return fmt.Errorf("invalid label_timezone '%s': %w", *c.LabelTimezone, err)
		}
	}

	if c.InitialTargetCount != nil && *c.InitialTargetCount < 0 {
		return fmt.Errorf("initial_target_count must be non-negative, got %d", *c.InitialTargetCount)
	}

	if c.MQTTBroker != nil && *c.MQTTBroker != "" {
		if _, err := url.Parse(*c.MQTTBroker); err != nil {
			return fmt.Errorf("invalid mqtt_broker '%s': %w", *c.MQTTBroker, err)
		}
	}

	return nil
}

func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid feed_url '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("feed_url must be an http or https URL, got '%s'", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("feed_url must include a host, got '%s'", raw)
	}
	return nil
}

// SetFeedURL overrides the feed URL, typically from a command-line flag.
func (c *DashboardConfig) SetFeedURL(v string) {
	c.FeedURL = ptrString(v)
}

// GetFeedURL returns feed_url or the default.
func (c *DashboardConfig) GetFeedURL() string {
	if c.FeedURL == nil || *c.FeedURL == "" {
		return DefaultFeedURL
	}
	return *c.FeedURL
}

// GetPollInterval parses and returns poll_interval.
func (c *DashboardConfig) GetPollInterval() time.Duration {
	return parseDurationOr(c.PollInterval, DefaultPollInterval)
}

// GetFetchTimeout parses and returns fetch_timeout.
func (c *DashboardConfig) GetFetchTimeout() time.Duration {
	return parseDurationOr(c.FetchTimeout, DefaultFetchTimeout)
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetWindowSize returns window_size (W) or the default.
func (c *DashboardConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return DefaultWindowSize
	}
	return *c.WindowSize
}

// GetSwitchThreshold returns switch_threshold (T) or the default.
func (c *DashboardConfig) GetSwitchThreshold() int {
	if c.SwitchThreshold == nil {
		return DefaultSwitchThreshold
	}
	return *c.SwitchThreshold
}

// GetFallbackCenter returns the map centre used while history is empty.
func (c *DashboardConfig) GetFallbackCenter() (lat, lng float64) {
	lat, lng = DefaultFallbackLat, DefaultFallbackLng
	if c.FallbackLat != nil {
		lat = *c.FallbackLat
	}
	if c.FallbackLng != nil {
		lng = *c.FallbackLng
	}
	return lat, lng
}

// GetLabelLocation returns the location chart labels are formatted in.
func (c *DashboardConfig) GetLabelLocation() *time.Location {
	if c.LabelTimezone == nil || *c.LabelTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(*c.LabelTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetInitialTargetCount returns initial_target_count or 0.
func (c *DashboardConfig) GetInitialTargetCount() int {
	if c.InitialTargetCount == nil {
		return 0
	}
	return *c.InitialTargetCount
}

// GetMQTTBroker returns the broker URL; empty disables pose fan-out.
func (c *DashboardConfig) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

// GetMQTTTopic returns mqtt_topic or the default.
func (c *DashboardConfig) GetMQTTTopic() string {
	if c.MQTTTopic == nil || *c.MQTTTopic == "" {
		return DefaultMQTTTopic
	}
	return *c.MQTTTopic
}

// GetMQTTClientID returns mqtt_client_id or the default.
func (c *DashboardConfig) GetMQTTClientID() string {
	if c.MQTTClientID == nil || *c.MQTTClientID == "" {
		return DefaultMQTTClientID
	}
	return *c.MQTTClientID
}
