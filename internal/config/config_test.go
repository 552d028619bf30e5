package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"database_url": "postgres://localhost/inventory",
		"location": "Austin, TX",
		"field_settle_ms": 150,
		"settings": {"use_alternate_injection": true, "origin_override": "https://staging.example.com"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/inventory", cfg.DatabaseURL)
	assert.Equal(t, "Austin, TX", cfg.Location)
	assert.Equal(t, 150, cfg.FieldSettleMS)
	assert.True(t, cfg.Settings.UseAlternateInjection)
	assert.False(t, cfg.Settings.RequireAdminRole)
	assert.Equal(t, "https://staging.example.com", cfg.Settings.OriginOverride)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("NATS_URL", "nats://relay:4222")
	t.Setenv("REQUIRE_ADMIN_ROLE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "nats://relay:4222", cfg.NATSURL)
	assert.True(t, cfg.Settings.RequireAdminRole)
	assert.Equal(t, 200*time.Millisecond, cfg.FieldSettleDelay())
	assert.Equal(t, 1200*time.Millisecond, cfg.InterTaskDelay())
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, cfg.ScrapeRetryDelays())
	assert.Equal(t, DefaultMarketplaceOrigin, cfg.Settings.MarketplaceOrigin())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"nats_url": "nats://file:4222", "inter_task_delay_ms": 500}`)
	t.Setenv("NATS_URL", "nats://env:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://env:4222", cfg.NATSURL)
	assert.Equal(t, 500*time.Millisecond, cfg.InterTaskDelay())
}

func TestLoad_InvalidBoolEnv(t *testing.T) {
	t.Setenv("USE_ALTERNATE_INJECTION", "sometimes")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USE_ALTERNATE_INJECTION")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{"valid", Defaults(), ""},
		{"negative settle", Config{FieldSettleMS: -1}, "field_settle_ms"},
		{"negative delay", Config{InterTaskDelayMS: -5}, "inter_task_delay_ms"},
		{"negative retry", Config{ScrapeRetryDelaysMS: []int{0, -1}}, "scrape_retry_delays_ms"},
		{"relative origin", Config{Settings: Settings{OriginOverride: "/marketplace"}}, "origin_override"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{NATSURL: "nats://custom:4222", Location: "Denver, CO"}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, "nats://custom:4222", merged.NATSURL)
	assert.Equal(t, "Denver, CO", merged.Location)
	assert.Equal(t, "inventory", merged.SubjectPrefix)
	assert.Equal(t, 200, merged.FieldSettleMS)
	assert.Equal(t, []int{0, 2000, 5000}, merged.ScrapeRetryDelaysMS)
}

func TestSettings_MarketplaceOrigin(t *testing.T) {
	assert.Equal(t, DefaultMarketplaceOrigin, Settings{}.MarketplaceOrigin())
	assert.Equal(t, "http://127.0.0.1:8080", Settings{OriginOverride: "http://127.0.0.1:8080/"}.MarketplaceOrigin())
}
