package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockServiceConfig implements ServiceConfig for testing ApplyServiceConfigs
type mockServiceConfig struct {
	calls       []string
	configDir   string
	dataDir     string
	validateErr error
}

func (m *mockServiceConfig) ApplyDefaults() {
	m.calls = append(m.calls, "defaults")
}

func (m *mockServiceConfig) ApplyEnvOverrides() {
	m.calls = append(m.calls, "env")
}

func (m *mockServiceConfig) ResolvePaths(configDir, dataDir string) {
	m.calls = append(m.calls, "paths")
	m.configDir = configDir
	m.dataDir = dataDir
}

func (m *mockServiceConfig) Validate() error {
	m.calls = append(m.calls, "validate")
	return m.validateErr
}

func TestApplyServiceConfigs_AllMethodsCalled(t *testing.T) {
	cfg1 := &mockServiceConfig{}
	cfg2 := &mockServiceConfig{}

	err := ApplyServiceConfigs("config", "data", cfg1, cfg2)

	assert.NoError(t, err)
	for _, cfg := range []*mockServiceConfig{cfg1, cfg2} {
		assert.Equal(t, []string{"defaults", "env", "paths", "validate"}, cfg.calls)
		assert.Equal(t, "config", cfg.configDir)
		assert.Equal(t, "data", cfg.dataDir)
	}
}

func TestApplyServiceConfigs_ValidationError(t *testing.T) {
	cfg1 := &mockServiceConfig{validateErr: assert.AnError}
	cfg2 := &mockServiceConfig{}

	err := ApplyServiceConfigs("config", "data", cfg1, cfg2)

	assert.Equal(t, assert.AnError, err)
	assert.Empty(t, cfg2.calls)
}

func TestApplyServiceConfigs_EmptyList(t *testing.T) {
	assert.NoError(t, ApplyServiceConfigs("config", "data"))
}
