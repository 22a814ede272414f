package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	feed "github.com/syntrixbase/intelsync/internal/feed/config"
	marker "github.com/syntrixbase/intelsync/internal/marker/config"
	server "github.com/syntrixbase/intelsync/internal/server"
	sink "github.com/syntrixbase/intelsync/internal/sink/config"
	storage "github.com/syntrixbase/intelsync/internal/storage/config"
	syncer "github.com/syntrixbase/intelsync/internal/syncer/config"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Falcon  feed.Config       `yaml:"falcon"`
	Marker  marker.Config     `yaml:"marker"`
	MongoDB storage.Config    `yaml:"mongodb"`
	NATS    sink.NotifyConfig `yaml:"nats"`
	Sync    syncer.Config     `yaml:"sync"`
	Server  server.Config     `yaml:"server"`
	Logging LoggingConfig     `yaml:"logging"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigDir holds config.yml and config.local.yml. Defaults to "config".
	ConfigDir string

	// DataDir is the base for relative runtime paths. Defaults to the
	// parent of ConfigDir.
	DataDir string

	// File is an explicit config file applied after config.local.yml.
	// Unlike the default files it must exist.
	File string

	// Offline skips validation of the falcon section for commands that
	// never reach the API.
	Offline bool
}

// DefaultConfig returns the configuration before any file is applied.
func DefaultConfig() *Config {
	return &Config{
		Falcon:  feed.DefaultConfig(),
		Marker:  marker.DefaultConfig(),
		MongoDB: storage.DefaultConfig(),
		NATS:    sink.DefaultNotifyConfig(),
		Sync:    syncer.DefaultConfig(),
		Server:  server.DefaultConfig(),
		Logging: DefaultLoggingConfig(),
	}
}

// LoadConfig loads configuration from files and environment variables
// Order: defaults -> config.yml -> config.local.yml -> explicit file ->
// ApplyEnvOverrides -> ResolvePaths -> Validate
func LoadConfig(opts LoadOptions) (*Config, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		configDir = "config"
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = filepath.Dir(filepath.Clean(configDir))
	}

	// 1. Start with default values (so YAML can override them, including bool fields)
	cfg := DefaultConfig()

	// 2. Load config.yml, then config.local.yml
	for _, name := range []string{"config.yml", "config.local.yml"} {
		if err := loadFile(filepath.Join(configDir, name), cfg, false); err != nil {
			return nil, err
		}
	}

	// 3. Explicit --config file
	if opts.File != "" {
		if err := loadFile(opts.File, cfg, true); err != nil {
			return nil, err
		}
	}

	// 4. Lifecycle
	sections := []ServiceConfig{
		&cfg.Marker,
		&cfg.MongoDB,
		&cfg.NATS,
		&cfg.Sync,
		&cfg.Server,
		&cfg.Logging,
	}
	if opts.Offline {
		cfg.Falcon.ApplyDefaults()
		cfg.Falcon.ApplyEnvOverrides()
		cfg.Falcon.ResolvePaths(configDir, dataDir)
	} else {
		sections = append([]ServiceConfig{&cfg.Falcon}, sections...)
	}
	if err := ApplyServiceConfigs(configDir, dataDir, sections...); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

func loadFile(filename string, cfg *Config, required bool) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	return nil
}
