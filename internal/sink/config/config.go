package config

import (
	"errors"
	"os"
	"time"
)

// NotifyConfig controls publishing newly ingested indicators to NATS JetStream.
type NotifyConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Stream        string        `yaml:"stream"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

// DefaultNotifyConfig returns defaults; publishing is off unless enabled.
func DefaultNotifyConfig() NotifyConfig {
	return NotifyConfig{
		URL:           "nats://localhost:4222",
		Stream:        "INTEL",
		SubjectPrefix: "intel",
		Timeout:       5 * time.Second,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *NotifyConfig) ApplyDefaults() {
	defaults := DefaultNotifyConfig()
	if c.URL == "" {
		c.URL = defaults.URL
	}
	if c.Stream == "" {
		c.Stream = defaults.Stream
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = defaults.SubjectPrefix
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *NotifyConfig) ApplyEnvOverrides() {
	if val := os.Getenv("NATS_URL"); val != "" {
		c.URL = val
	}
	if val := os.Getenv("INTELSYNC_NATS_ENABLED"); val != "" {
		c.Enabled = val == "true" || val == "1"
	}
}

// ResolvePaths is a no-op; the notify config has no paths.
func (c *NotifyConfig) ResolvePaths(_, _ string) {}

// Validate returns an error if the configuration is invalid.
func (c *NotifyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errors.New("nats.url is required when nats.enabled is true")
	}
	if c.Stream == "" {
		return errors.New("nats.stream is required when nats.enabled is true")
	}
	if c.SubjectPrefix == "" {
		return errors.New("nats.subject_prefix is required when nats.enabled is true")
	}
	return nil
}
