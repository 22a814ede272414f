package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "us-1", cfg.CloudRegion)
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, time.Minute, cfg.MaxRetryWait)
	assert.Equal(t, 1000, cfg.Query.Limit)
	assert.Equal(t, "_marker.asc", cfg.Query.Sort)
	assert.False(t, cfg.Query.IncludeDeleted)
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("FALCON_CLOUD_REGION", "eu-1")
	t.Setenv("FALCON_CLIENT_ID", "env-id")
	t.Setenv("FALCON_CLIENT_SECRET", "env-secret")
	t.Setenv("FALCON_RECONNECT_RETRY_COUNT", "7")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "eu-1", cfg.CloudRegion)
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, 7, cfg.RetryCount)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing client id", func(c *Config) { c.ClientID = "" }, "FALCON_CLIENT_ID"},
		{"missing client secret", func(c *Config) { c.ClientSecret = "" }, "FALCON_CLIENT_SECRET"},
		{"retry count zero", func(c *Config) { c.RetryCount = 0 }, "reconnect_retry_count"},
		{"retry count too large", func(c *Config) { c.RetryCount = 10000 }, "reconnect_retry_count"},
		{"unknown region", func(c *Config) { c.CloudRegion = "mars-1" }, "cloud_region"},
		{"base url overrides region", func(c *Config) {
			c.CloudRegion = "mars-1"
			c.BaseURL = "http://127.0.0.1:8080"
		}, ""},
		{"relative base url", func(c *Config) { c.BaseURL = "/api" }, "base_url"},
		{"limit too large", func(c *Config) { c.Query.Limit = 5001 }, "limit"},
		{"max retry wait below retry wait", func(c *Config) {
			c.RetryWait = time.Minute
			c.MaxRetryWait = time.Second
		}, "max_retry_wait"},
		{"negative retry wait", func(c *Config) { c.RetryWait = -time.Second }, "retry_wait"},
		{"large retry count", func(c *Config) { c.RetryCount = 9999 }, ""},
		{"empty sort", func(c *Config) { c.Query.Sort = "" }, "sort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_URL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "https://api.crowdstrike.com", cfg.URL())

	cfg.CloudRegion = "us-gov-1"
	assert.Equal(t, "https://api.laggar.gcw.crowdstrike.com", cfg.URL())

	cfg.BaseURL = "http://localhost:9000/"
	assert.Equal(t, "http://localhost:9000", cfg.URL())
}
