package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/snow-ghost/era/pkg/journal"
	"github.com/snow-ghost/era/pkg/limiter"
	"github.com/snow-ghost/era/pkg/logging"
	"github.com/snow-ghost/era/pkg/tracing"
)

// Telemetry source names
const (
	SourceProc       = "proc"
	SourceSimulated  = "simulated"
	SourcePrometheus = "prometheus"
)

// Config is the full runtime configuration of era
type Config struct {
	Optimizer  OptimizerConfig `yaml:"optimizer"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Actuation  ActuationConfig `yaml:"actuation"`
	Protection limiter.Config  `yaml:"protection"`
	Journal    journal.Config  `yaml:"journal"`
	API        APIConfig       `yaml:"api"`
	Dashboard  DashboardConfig `yaml:"dashboard"`
	LoadGen    LoadGenConfig   `yaml:"loadgen"`
	Logging    logging.Config  `yaml:"logging"`
	Tracing    tracing.Config  `yaml:"tracing"`
}

// OptimizerConfig tunes the GA and its loop
type OptimizerConfig struct {
	PopulationSize  int           `yaml:"population_size"`
	Interval        time.Duration `yaml:"interval"`
	HistoryInterval time.Duration `yaml:"history_interval"`
	HistoryCapacity int           `yaml:"history_capacity"`
	MutationRate    float64       `yaml:"mutation_rate"`
	EliteFraction   float64       `yaml:"elite_fraction"`
	Seed            uint64        `yaml:"seed"` // 0 picks a random seed at startup
	InitialLoad     int           `yaml:"initial_load"`
	GenerationLog   int           `yaml:"generation_log"`
}

// TelemetryConfig selects and configures the usage source
type TelemetryConfig struct {
	Source       string           `yaml:"source"`
	ProcRoot     string           `yaml:"proc_root"`
	SysRoot      string           `yaml:"sys_root"`
	SampleWindow time.Duration    `yaml:"sample_window"`
	Prometheus   PrometheusConfig `yaml:"prometheus"`
}

// PrometheusConfig points the prometheus source at a server
type PrometheusConfig struct {
	Address     string        `yaml:"address"`
	CPUQuery    string        `yaml:"cpu_query"`
	MemoryQuery string        `yaml:"memory_query"`
	PowerQuery  string        `yaml:"power_query"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ActuationConfig controls what the threshold sinks touch
type ActuationConfig struct {
	DryRun     bool   `yaml:"dry_run"`
	ProcRoot   string `yaml:"proc_root"`
	SysRoot    string `yaml:"sys_root"`
	CgroupPath string `yaml:"cgroup_path"`
	Governor   string `yaml:"governor"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DashboardConfig configures the terminal dashboard
type DashboardConfig struct {
	Enabled bool          `yaml:"enabled"`
	Refresh time.Duration `yaml:"refresh"`
}

// LoadGenConfig configures the synthetic load generator
type LoadGenConfig struct {
	Enabled bool    `yaml:"enabled"`
	Scale   float64 `yaml:"scale"`
	Workers int     `yaml:"workers"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	source := SourceSimulated
	if runtime.GOOS == "linux" {
		source = SourceProc
	}

	return &Config{
		Optimizer: OptimizerConfig{
			PopulationSize:  20,
			Interval:        500 * time.Millisecond,
			HistoryInterval: time.Second,
			HistoryCapacity: 120,
			MutationRate:    0.1,
			EliteFraction:   0.2,
			GenerationLog:   1024,
		},
		Telemetry: TelemetryConfig{
			Source:       source,
			ProcRoot:     "/proc",
			SysRoot:      "/sys",
			SampleWindow: 100 * time.Millisecond,
			Prometheus: PrometheusConfig{
				Address:     "http://localhost:9090",
				CPUQuery:    `100 * (1 - avg(rate(node_cpu_seconds_total{mode="idle"}[1m])))`,
				MemoryQuery: `100 * (1 - node_memory_MemAvailable_bytes / node_memory_MemTotal_bytes)`,
				PowerQuery:  `sum(node_power_supply_power_watt)`,
				Timeout:     2 * time.Second,
			},
		},
		Actuation: ActuationConfig{
			DryRun:     true,
			ProcRoot:   "/proc",
			SysRoot:    "/sys",
			CgroupPath: "/sys/fs/cgroup/era",
			Governor:   "schedutil",
		},
		Protection: limiter.DefaultConfig(),
		Journal:    journal.DefaultConfig(),
		API: APIConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Dashboard: DashboardConfig{
			Refresh: 500 * time.Millisecond,
		},
		LoadGen: LoadGenConfig{
			Scale:   1,
			Workers: 1,
		},
		Logging: logging.DefaultConfig(),
		Tracing: tracing.Config{
			ServiceName: "era",
			Environment: "development",
		},
	}
}

// Validate rejects settings the optimizer cannot run with
func (c *Config) Validate() error {
	var errs []error
	o := c.Optimizer

	if o.PopulationSize < 1 {
		errs = append(errs, fmt.Errorf("optimizer.population_size must be at least 1, got %d", o.PopulationSize))
	}
	if o.MutationRate < 0 || o.MutationRate > 1 {
		errs = append(errs, fmt.Errorf("optimizer.mutation_rate must be within [0,1], got %v", o.MutationRate))
	}
	if o.EliteFraction <= 0 || o.EliteFraction > 1 {
		errs = append(errs, fmt.Errorf("optimizer.elite_fraction must be within (0,1], got %v", o.EliteFraction))
	}
	if o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("optimizer.interval must be positive, got %v", o.Interval))
	}
	if o.HistoryInterval <= 0 {
		errs = append(errs, fmt.Errorf("optimizer.history_interval must be positive, got %v", o.HistoryInterval))
	}
	if o.HistoryCapacity < 1 {
		errs = append(errs, fmt.Errorf("optimizer.history_capacity must be at least 1, got %d", o.HistoryCapacity))
	}
	if o.InitialLoad < 0 || o.InitialLoad > 2 {
		errs = append(errs, fmt.Errorf("optimizer.initial_load must be 0, 1 or 2, got %d", o.InitialLoad))
	}

	switch c.Telemetry.Source {
	case SourceProc, SourceSimulated:
	case SourcePrometheus:
		if c.Telemetry.Prometheus.Address == "" {
			errs = append(errs, errors.New("telemetry.prometheus.address is required for the prometheus source"))
		}
	default:
		errs = append(errs, fmt.Errorf("telemetry.source must be proc, simulated or prometheus, got %q", c.Telemetry.Source))
	}

	if c.LoadGen.Scale <= 0 {
		errs = append(errs, fmt.Errorf("loadgen.scale must be positive, got %v", c.LoadGen.Scale))
	}

	return errors.Join(errs...)
}
