package experiment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stream-select/dmgt-sim/sim"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{LineageDMGTUniform, LineageDMGTIncreasing, LineageRandom, LineageSieve}, cfg.ActiveLineages())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, mustRarity(t, cfg).RareClasses())
}

func mustRarity(t *testing.T, cfg Config) sim.Rarity {
	t.Helper()
	r, err := cfg.Rarity()
	require.NoError(t, err)
	return r
}

func TestConfig_Validate_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero budget", func(c *Config) { c.Budget = 0 }, sim.ErrNonPositiveBudget},
		{"negative budget", func(c *Config) { c.Budget = -3 }, sim.ErrNonPositiveBudget},
		{"uniform schedule too short", func(c *Config) { c.UniformThresholds = c.UniformThresholds[:3] }, sim.ErrScheduleTooShort},
		{"increasing schedule too short", func(c *Config) { c.IncreasingThresholds = nil }, sim.ErrScheduleTooShort},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }, sim.ErrInvalidEpsilon},
		{"zero guess floor", func(c *Config) { c.GuessFloor = 0 }, sim.ErrEmptyGuessDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.True(t, sim.IsConfigurationError(err), "want ConfigurationError, got %T: %v", err, err)
			assert.True(t, errors.Is(err, tt.want), "want %v, got %v", tt.want, err)
		})
	}
}

func TestConfig_Validate_InactiveLineageParametersIgnored(t *testing.T) {
	// GIVEN only the RAND lineage, with broken DMGT and SIEVE parameters
	cfg := DefaultConfig()
	cfg.Lineages = []string{LineageRandom}
	cfg.UniformThresholds = nil
	cfg.Epsilon = 0

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_OtherErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no trials", func(c *Config) { c.Trials = 0 }},
		{"no agents", func(c *Config) { c.NumAgents = 0 }},
		{"no rounds", func(c *Config) { c.NumRounds = 0 }},
		{"empty stream", func(c *Config) { c.StreamSize = 0 }},
		{"unknown coverage", func(c *Config) { c.Coverage = "sum" }},
		{"unknown trace level", func(c *Config) { c.TraceLevel = "verbose" }},
		{"unknown lineage", func(c *Config) { c.Lineages = []string{"greedy"} }},
		{"rare class out of range", func(c *Config) { c.RareClasses = []int{10} }},
		{"pool too small", func(c *Config) { c.Workload.PoolSize = 100 }},
		{"bad workload", func(c *Config) { c.Workload.Dim = 0 }},
		{"zero temperature", func(c *Config) { c.Temperature = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig_StrictOverBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.yaml")
	body := "budget: 30\nlineages: [sieve]\nworkload:\n  dim: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Budget)
	assert.Equal(t, []string{LineageSieve}, cfg.ActiveLineages())
	assert.Equal(t, 4, cfg.Workload.Dim)
	assert.Equal(t, DefaultConfig().Workload.PoolSize, cfg.Workload.PoolSize)
	assert.Equal(t, 3, cfg.NumAgents)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("budgett: 30\n"), 0o644))
	_, err = LoadConfig(bad, DefaultConfig())
	assert.Error(t, err)
}
