package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds sync loop settings.
type Config struct {
	// MaxPages caps fetches per run. 0 means until the feed is exhausted.
	MaxPages int `yaml:"max_pages"`

	// SkipOrderCheck disables the per-page marker order validation.
	SkipOrderCheck bool `yaml:"skip_order_check"`

	// Interval between runs in daemon mode. 0 runs once.
	Interval time.Duration `yaml:"interval"`

	// RunTimeout bounds a single run. 0 means no limit.
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// DefaultConfig returns defaults for the sync loop.
func DefaultConfig() Config {
	return Config{}
}

// ApplyDefaults fills zero values with defaults. Every zero value is a
// meaningful setting here.
func (c *Config) ApplyDefaults() {}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("INTELSYNC_MAX_PAGES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MaxPages = n
		}
	}
	if val := os.Getenv("INTELSYNC_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Interval = d
		}
	}
}

// ResolvePaths is a no-op; the sync config has no paths.
func (c *Config) ResolvePaths(_, _ string) {}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.MaxPages < 0 {
		return errors.New("sync.max_pages must not be negative")
	}
	if c.Interval < 0 {
		return errors.New("sync.interval must not be negative")
	}
	if c.RunTimeout < 0 {
		return errors.New("sync.run_timeout must not be negative")
	}
	return nil
}
