package monitor

import (
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/config"
	"github.com/snow-ghost/era/pkg/logging"
)

// NewFromConfig creates the telemetry source named by cfg.Source. The
// power reader of the proc source falls back to the simulated walk when
// the host has no battery or thermal zone.
func NewFromConfig(cfg config.TelemetryConfig, level func() core.LoadLevel, rng *rand.Rand, logger *logging.Logger) (*Source, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	source := cfg.Source
	if source == "" {
		source = config.SourceProc
		if runtime.GOOS != "linux" {
			source = config.SourceSimulated
		}
	}

	switch source {
	case config.SourceProc:
		sim := NewSimulated(rng, level)
		power := &Fallback{
			Primary:   NewSysfsPower(cfg.SysRoot),
			Secondary: sim.Reader(core.ResourcePower),
			Name:      "power",
			Logger:    logger,
		}
		return NewSource(NewProcCPU(cfg.ProcRoot, cfg.SampleWindow), NewProcMemory(cfg.ProcRoot), power), nil

	case config.SourceSimulated:
		sim := NewSimulated(rng, level)
		return NewSource(sim.Reader(core.ResourceCPU), sim.Reader(core.ResourceMemory), sim.Reader(core.ResourcePower)), nil

	case config.SourcePrometheus:
		p := cfg.Prometheus
		prom, err := NewPrometheusSource(p.Address, PrometheusQueries{
			CPU:    p.CPUQuery,
			Memory: p.MemoryQuery,
			Power:  p.PowerQuery,
		}, p.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return NewSource(prom.Reader(core.ResourceCPU), prom.Reader(core.ResourceMemory), prom.Reader(core.ResourcePower)), nil

	default:
		return nil, fmt.Errorf("unknown telemetry source %q", source)
	}
}
