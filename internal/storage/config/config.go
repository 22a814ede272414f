package config

import (
	"errors"
	"os"
	"time"
)

// Config holds the MongoDB connection shared by the document sink and the
// mongo marker backend.
type Config struct {
	ConnectionString string        `yaml:"connectionstring"`
	Database         string        `yaml:"database"`
	Collection       string        `yaml:"collection"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns defaults for the MongoDB connection.
func DefaultConfig() Config {
	return Config{
		ConnectionString: "mongodb://localhost:27017",
		Database:         "intel",
		Collection:       "indicators",
		ConnectTimeout:   10 * time.Second,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.ConnectionString == "" {
		c.ConnectionString = defaults.ConnectionString
	}
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.Collection == "" {
		c.Collection = defaults.Collection
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MONGO_CONNECTIONSTRING"); val != "" {
		c.ConnectionString = val
	}
	if val := os.Getenv("MONGO_DATABASE"); val != "" {
		c.Database = val
	}
	if val := os.Getenv("MONGO_COLLECTION"); val != "" {
		c.Collection = val
	}
}

// ResolvePaths is a no-op; the MongoDB config has no paths.
func (c *Config) ResolvePaths(_, _ string) {}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return errors.New("please provide environment variable MONGO_CONNECTIONSTRING or configuration option mongodb.connectionstring")
	}
	if c.Database == "" {
		return errors.New("please provide environment variable MONGO_DATABASE or configuration option mongodb.database")
	}
	if c.Collection == "" {
		return errors.New("please provide environment variable MONGO_COLLECTION or configuration option mongodb.collection")
	}
	if c.ConnectTimeout < 0 {
		return errors.New("mongodb.connect_timeout must not be negative")
	}
	return nil
}
