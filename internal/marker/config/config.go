package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendMongo  = "mongo"
	BackendPebble = "pebble"
	BackendSQLite = "sqlite"
)

// Config holds marker store configuration.
type Config struct {
	// Backend selects the store: file, mongo, pebble or sqlite.
	Backend string `yaml:"backend"`

	// Stream names the marker stream. Only one sync may run per stream.
	Stream string `yaml:"stream"`

	// File is the append-only marker log used by the file backend.
	File string `yaml:"marker_file"`

	// Path is the data directory (pebble) or database file (sqlite).
	Path string `yaml:"path"`

	// Collection holds marker entries for the mongo backend.
	Collection string `yaml:"collection"`
}

// DefaultConfig returns defaults for the marker store.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendFile,
		Stream:     "indicators",
		File:       "data/marker.txt",
		Collection: "intel_markers",
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.Stream == "" {
		c.Stream = defaults.Stream
	}
	if c.File == "" {
		c.File = defaults.File
	}
	if c.Collection == "" {
		c.Collection = defaults.Collection
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendPebble:
			c.Path = "data/markers"
		case BackendSQLite:
			c.Path = "data/markers.db"
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("INTELSYNC_MARKER_BACKEND"); val != "" {
		c.Backend = val
	}
	if val := os.Getenv("INTELSYNC_MARKER_FILE"); val != "" {
		c.File = val
	}
}

// ResolvePaths resolves relative paths against dataDir.
func (c *Config) ResolvePaths(_, dataDir string) {
	c.File = resolve(dataDir, c.File)
	c.Path = resolve(dataDir, c.Path)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.Stream == "" {
		return fmt.Errorf("marker.stream is required")
	}
	if strings.Contains(c.Stream, "/") {
		return fmt.Errorf("marker.stream must not contain '/', got %q", c.Stream)
	}
	switch c.Backend {
	case BackendFile:
		if c.File == "" {
			return fmt.Errorf("marker.marker_file is required for the file backend")
		}
	case BackendPebble, BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("marker.path is required for the %s backend", c.Backend)
		}
	case BackendMongo:
		if c.Collection == "" {
			return fmt.Errorf("marker.collection is required for the mongo backend")
		}
	default:
		return fmt.Errorf("marker.backend must be one of file, mongo, pebble, sqlite, got %q", c.Backend)
	}
	return nil
}
