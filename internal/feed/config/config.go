package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CloudRegions maps a Falcon cloud region to its API host.
var CloudRegions = map[string]string{
	"us-1":     "api.crowdstrike.com",
	"us-2":     "api.us-2.crowdstrike.com",
	"eu-1":     "api.eu-1.crowdstrike.com",
	"us-gov-1": "api.laggar.gcw.crowdstrike.com",
}

// Config holds the Falcon API connection settings.
type Config struct {
	CloudRegion  string `yaml:"cloud_region"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// BaseURL overrides the region host, e.g. for a proxy.
	BaseURL string `yaml:"base_url"`

	// RetryCount bounds attempts for transport faults, 429 and 5xx responses.
	RetryCount int           `yaml:"reconnect_retry_count"`
	RetryWait  time.Duration `yaml:"retry_wait"`
	Timeout    time.Duration `yaml:"timeout"`

	// MaxRetryWait caps the exponential backoff and any Retry-After delay.
	MaxRetryWait time.Duration `yaml:"max_retry_wait"`

	Query QueryConfig `yaml:"query"`
}

// QueryConfig holds the static part of the indicator query.
type QueryConfig struct {
	Limit          int    `yaml:"limit"`
	IncludeDeleted bool   `yaml:"include_deleted"`
	Sort           string `yaml:"sort"`
}

// DefaultConfig returns defaults for the Falcon client.
func DefaultConfig() Config {
	return Config{
		CloudRegion:  "us-1",
		RetryCount:   3,
		RetryWait:    2 * time.Second,
		Timeout:      30 * time.Second,
		MaxRetryWait: time.Minute,
		Query: QueryConfig{
			Limit: 1000,
			Sort:  "_marker.asc",
		},
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.CloudRegion == "" {
		c.CloudRegion = defaults.CloudRegion
	}
	if c.RetryCount == 0 {
		c.RetryCount = defaults.RetryCount
	}
	if c.RetryWait == 0 {
		c.RetryWait = defaults.RetryWait
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxRetryWait == 0 {
		c.MaxRetryWait = defaults.MaxRetryWait
	}
	if c.Query.Limit == 0 {
		c.Query.Limit = defaults.Query.Limit
	}
	if c.Query.Sort == "" {
		c.Query.Sort = defaults.Query.Sort
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("FALCON_CLOUD_REGION"); val != "" {
		c.CloudRegion = val
	}
	if val := os.Getenv("FALCON_CLIENT_ID"); val != "" {
		c.ClientID = val
	}
	if val := os.Getenv("FALCON_CLIENT_SECRET"); val != "" {
		c.ClientSecret = val
	}
	if val := os.Getenv("FALCON_BASE_URL"); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv("FALCON_RECONNECT_RETRY_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.RetryCount = n
		}
	}
}

// ResolvePaths is a no-op; the Falcon config has no paths.
func (c *Config) ResolvePaths(_, _ string) {}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("please provide environment variable FALCON_CLIENT_ID or configuration option falcon.client_id")
	}
	if c.ClientSecret == "" {
		return errors.New("please provide environment variable FALCON_CLIENT_SECRET or configuration option falcon.client_secret")
	}
	if c.RetryCount < 1 || c.RetryCount >= 10000 {
		return fmt.Errorf("falcon.reconnect_retry_count must be in range 1-9999, got %d", c.RetryCount)
	}
	if c.RetryWait < 0 || c.MaxRetryWait < 0 {
		return errors.New("falcon.retry_wait and falcon.max_retry_wait must not be negative")
	}
	if c.MaxRetryWait < c.RetryWait {
		return fmt.Errorf("falcon.max_retry_wait (%s) must not be less than falcon.retry_wait (%s)", c.MaxRetryWait, c.RetryWait)
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("falcon.base_url is not an absolute URL: %q", c.BaseURL)
		}
	} else if _, ok := CloudRegions[c.CloudRegion]; !ok {
		return fmt.Errorf("falcon.cloud_region must be one of %s, got %q", strings.Join(regionNames(), ", "), c.CloudRegion)
	}
	if c.Query.Limit < 1 || c.Query.Limit > 5000 {
		return fmt.Errorf("falcon.query.limit must be in range 1-5000, got %d", c.Query.Limit)
	}
	if c.Query.Sort == "" {
		return errors.New("falcon.query.sort is required")
	}
	return nil
}

// URL returns the API base URL for the configured region.
func (c *Config) URL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://" + CloudRegions[c.CloudRegion]
}

func regionNames() []string {
	names := make([]string, 0, len(CloudRegions))
	for name := range CloudRegions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
