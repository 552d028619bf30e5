// Package config provides configuration loading and validation for the CLI and workers.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultMarketplaceOrigin is the origin of the listing-creation page the form filler drives.
const DefaultMarketplaceOrigin = "https://www.facebook.com"

// Settings are the process-wide switches. They are loaded once at start-up and
// passed explicitly to the components that read them.
type Settings struct {
	UseAlternateInjection bool   `json:"use_alternate_injection,omitempty"` // Assign values via script + synthetic events instead of key events
	RequireAdminRole      bool   `json:"require_admin_role,omitempty"`      // Reject relay callers whose token lacks the admin role
	OriginOverride        string `json:"origin_override,omitempty"`         // Replaces DefaultMarketplaceOrigin (staging, tests)
}

// MarketplaceOrigin returns the origin the form filler expects to be on.
func (s Settings) MarketplaceOrigin() string {
	if s.OriginOverride != "" {
		return strings.TrimSuffix(s.OriginOverride, "/")
	}
	return DefaultMarketplaceOrigin
}

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional in the file; environment variables and defaults fill the rest.
type Config struct {
	// Endpoints
	DatabaseURL   string `json:"database_url,omitempty"`   // PostgreSQL connection URL
	NATSURL       string `json:"nats_url,omitempty"`       // NATS server URL for the message relay
	SubjectPrefix string `json:"subject_prefix,omitempty"` // Relay subject prefix
	VINDecodeURL  string `json:"vin_decode_url,omitempty"` // Base URL of the VIN decode service
	ChromeURL     string `json:"chrome_url,omitempty"`     // DevTools websocket URL of a logged-in browser
	GeminiAPIKey  string `json:"gemini_api_key,omitempty"` // Enables generated descriptions when set

	// Posting
	Location string `json:"location,omitempty"` // Value typed into the listing location field

	// Timing (milliseconds)
	FieldSettleMS       int   `json:"field_settle_ms,omitempty"`        // Pause after each form field is set
	InterTaskDelayMS    int   `json:"inter_task_delay_ms,omitempty"`    // Pause between posting tasks
	ScrapeRetryDelaysMS []int `json:"scrape_retry_delays_ms,omitempty"` // Wait before each scrape attempt

	Settings Settings `json:"settings"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		NATSURL:             "nats://127.0.0.1:4222",
		SubjectPrefix:       "inventory",
		VINDecodeURL:        "https://vpic.nhtsa.dot.gov/api/vehicles",
		ChromeURL:           "ws://127.0.0.1:9222",
		FieldSettleMS:       200,
		InterTaskDelayMS:    1200,
		ScrapeRetryDelaysMS: []int{0, 2000, 5000},
	}
}

// Load builds the process configuration once: the optional JSON file, then
// environment overrides, then defaults for anything still unset.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() error {
	strVars := map[string]*string{
		"DATABASE_URL":    &c.DatabaseURL,
		"NATS_URL":        &c.NATSURL,
		"SUBJECT_PREFIX":  &c.SubjectPrefix,
		"VIN_DECODE_URL":  &c.VINDecodeURL,
		"CHROME_URL":      &c.ChromeURL,
		"GEMINI_API_KEY":  &c.GeminiAPIKey,
		"POST_LOCATION":   &c.Location,
		"ORIGIN_OVERRIDE": &c.Settings.OriginOverride,
	}
	for key, dst := range strVars {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	boolVars := map[string]*bool{
		"USE_ALTERNATE_INJECTION": &c.Settings.UseAlternateInjection,
		"REQUIRE_ADMIN_ROLE":      &c.Settings.RequireAdminRole,
	}
	for key, dst := range boolVars {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = b
	}

	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.FieldSettleMS < 0 {
		return fmt.Errorf("config error: 'field_settle_ms' must be non-negative")
	}
	if c.InterTaskDelayMS < 0 {
		return fmt.Errorf("config error: 'inter_task_delay_ms' must be non-negative")
	}
	for _, d := range c.ScrapeRetryDelaysMS {
		if d < 0 {
			return fmt.Errorf("config error: 'scrape_retry_delays_ms' entries must be non-negative")
		}
	}

	if o := c.Settings.OriginOverride; o != "" {
		u, err := url.Parse(o)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'origin_override' must be an absolute URL: %s", o)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.NATSURL == "" {
		result.NATSURL = defaults.NATSURL
	}
	if result.SubjectPrefix == "" {
		result.SubjectPrefix = defaults.SubjectPrefix
	}
	if result.VINDecodeURL == "" {
		result.VINDecodeURL = defaults.VINDecodeURL
	}
	if result.ChromeURL == "" {
		result.ChromeURL = defaults.ChromeURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.Location == "" {
		result.Location = defaults.Location
	}
	if result.Settings.OriginOverride == "" {
		result.Settings.OriginOverride = defaults.Settings.OriginOverride
	}

	// Int fields: use default if zero
	if result.FieldSettleMS == 0 {
		result.FieldSettleMS = defaults.FieldSettleMS
	}
	if result.InterTaskDelayMS == 0 {
		result.InterTaskDelayMS = defaults.InterTaskDelayMS
	}
	if len(result.ScrapeRetryDelaysMS) == 0 {
		result.ScrapeRetryDelaysMS = append([]int(nil), defaults.ScrapeRetryDelaysMS...)
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge

	return result
}

// FieldSettleDelay is the pause awaited after each form field is set.
func (c *Config) FieldSettleDelay() time.Duration {
	return time.Duration(c.FieldSettleMS) * time.Millisecond
}

// InterTaskDelay is the pause between two posting tasks.
func (c *Config) InterTaskDelay() time.Duration {
	return time.Duration(c.InterTaskDelayMS) * time.Millisecond
}

// ScrapeRetryDelays is the wait schedule before each scrape attempt.
func (c *Config) ScrapeRetryDelays() []time.Duration {
	out := make([]time.Duration, len(c.ScrapeRetryDelaysMS))
	for i, ms := range c.ScrapeRetryDelaysMS {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}
