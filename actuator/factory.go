package actuator

import (
	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/config"
	"github.com/snow-ghost/era/pkg/logging"
)

// ReaderSource hands out one usage reader per resource.
type ReaderSource interface {
	Reader(r core.Resource) core.UsageReader
}

// NewSinks builds the three actuators from cfg.
func NewSinks(cfg config.ActuationConfig, readers ReaderSource, logger *logging.Logger) (core.Sinks, error) {
	opts := Options{DryRun: cfg.DryRun, Logger: logger}

	cpu, err := NewCPU(readers.Reader(core.ResourceCPU), cfg.CgroupPath, 0, opts)
	if err != nil {
		return core.Sinks{}, err
	}
	memory, err := NewMemory(readers.Reader(core.ResourceMemory), cfg.ProcRoot, opts)
	if err != nil {
		return core.Sinks{}, err
	}
	power, err := NewPower(readers.Reader(core.ResourcePower), cfg.SysRoot, cfg.Governor, opts)
	if err != nil {
		return core.Sinks{}, err
	}

	return core.Sinks{CPU: cpu, Memory: memory, Power: power}, nil
}
