package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 9464, cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.HTTPReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTPWriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPIdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "localhost:9464", cfg.Addr())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name    string
		initial Config
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "empty config gets all defaults",
			initial: Config{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.Host)
				assert.Equal(t, 9464, cfg.HTTPPort)
				assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
			},
		},
		{
			name: "custom values preserved",
			initial: Config{
				Enabled:         true,
				Host:            "0.0.0.0",
				HTTPPort:        9100,
				HTTPReadTimeout: 30 * time.Second,
				ShutdownTimeout: 30 * time.Second,
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Enabled)
				assert.Equal(t, "0.0.0.0", cfg.Host)
				assert.Equal(t, 9100, cfg.HTTPPort)
				assert.Equal(t, 30*time.Second, cfg.HTTPReadTimeout)
				assert.Equal(t, 10*time.Second, cfg.HTTPWriteTimeout)
				assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			cfg.ApplyDefaults()
			tt.check(t, &cfg)
		})
	}
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("INTELSYNC_SERVER_PORT", "9999")
	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 9999, cfg.HTTPPort)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.HTTPPort = 70000
	assert.Error(t, cfg.Validate())
}
