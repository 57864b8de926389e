package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Optimizer.PopulationSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Optimizer.Interval)
	assert.Equal(t, time.Second, cfg.Optimizer.HistoryInterval)
	assert.Equal(t, 120, cfg.Optimizer.HistoryCapacity)
	assert.True(t, cfg.Actuation.DryRun)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, "none", cfg.Journal.Backend)
}

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
optimizer:
  population_size: 12
  interval: 250ms
  seed: 99
telemetry:
  source: simulated
actuation:
  dry_run: false
protection:
  rate:
    min_interval: 2s
journal:
  backend: sqlite
  path: /tmp/era.db
`))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Optimizer.PopulationSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Optimizer.Interval)
	assert.Equal(t, uint64(99), cfg.Optimizer.Seed)
	assert.Equal(t, SourceSimulated, cfg.Telemetry.Source)
	assert.False(t, cfg.Actuation.DryRun)
	assert.Equal(t, 2*time.Second, cfg.Protection.Rate.MinInterval)
	assert.Equal(t, "sqlite", cfg.Journal.Backend)

	// untouched keys keep their defaults
	assert.Equal(t, 0.1, cfg.Optimizer.MutationRate)
	assert.Equal(t, 120, cfg.Optimizer.HistoryCapacity)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty population", func(c *Config) { c.Optimizer.PopulationSize = 0 }, "population_size"},
		{"mutation rate", func(c *Config) { c.Optimizer.MutationRate = 1.5 }, "mutation_rate"},
		{"elite fraction", func(c *Config) { c.Optimizer.EliteFraction = 0 }, "elite_fraction"},
		{"interval", func(c *Config) { c.Optimizer.Interval = 0 }, "optimizer.interval"},
		{"history capacity", func(c *Config) { c.Optimizer.HistoryCapacity = 0 }, "history_capacity"},
		{"initial load", func(c *Config) { c.Optimizer.InitialLoad = 3 }, "initial_load"},
		{"source", func(c *Config) { c.Telemetry.Source = "snmp" }, "telemetry.source"},
		{"prometheus address", func(c *Config) {
			c.Telemetry.Source = SourcePrometheus
			c.Telemetry.Prometheus.Address = ""
		}, "prometheus.address"},
		{"loadgen scale", func(c *Config) { c.LoadGen.Scale = 0 }, "loadgen.scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoader_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "era.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  population_size: 8\napi:\n  addr: \":9000\"\n"), 0o644))

	t.Setenv("ERA_POPULATION_SIZE", "16")
	t.Setenv("ERA_DRY_RUN", "false")
	t.Setenv("ERA_JOURNAL_BACKEND", "memory")
	t.Setenv("ERA_INTERVAL", "not-a-duration")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Optimizer.PopulationSize)
	assert.Equal(t, ":9000", cfg.API.Addr)
	assert.False(t, cfg.Actuation.DryRun)
	assert.Equal(t, "memory", cfg.Journal.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Optimizer.Interval)
}

func TestLoader_ConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "era.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  population_size: 5\n"), 0o644))
	t.Setenv("ERA_CONFIG", path)

	loader := NewLoader("")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Optimizer.PopulationSize)
	assert.Equal(t, path, loader.Path())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Optimizer, cfg.Optimizer)
}

func TestLoader_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer: [unclosed"), 0o644))
	_, err := NewLoader(path).Load()
	assert.ErrorContains(t, err, "parse YAML")

	t.Setenv("ERA_POPULATION_SIZE", "0")
	_, err = NewLoader("").Load()
	assert.ErrorContains(t, err, "population_size")
}
