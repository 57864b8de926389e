package core

import "context"

// Resource names a monitored resource.
type Resource string

const (
	ResourceCPU    Resource = "cpu"
	ResourceMemory Resource = "memory"
	ResourcePower  Resource = "power"
)

// Resources lists the monitored resources in gene order.
var Resources = []Resource{ResourceCPU, ResourceMemory, ResourcePower}

// TelemetrySource supplies a snapshot of current utilization.
type TelemetrySource interface {
	CurrentUsage(ctx context.Context) (SystemResources, error)
}

// UsageReader reads the utilization of a single resource.
type UsageReader interface {
	Read(ctx context.Context) (float64, error)
}

// UsageReaderFunc adapts a function to UsageReader.
type UsageReaderFunc func(ctx context.Context) (float64, error)

func (f UsageReaderFunc) Read(ctx context.Context) (float64, error) { return f(ctx) }

// ThresholdSink accepts a threshold and applies remediation for one resource.
type ThresholdSink interface {
	Apply(ctx context.Context, threshold float64) error
}

// ThresholdSinkFunc adapts a function to ThresholdSink.
type ThresholdSinkFunc func(ctx context.Context, threshold float64) error

func (f ThresholdSinkFunc) Apply(ctx context.Context, threshold float64) error {
	return f(ctx, threshold)
}

// Sinks groups the per-resource threshold consumers. Nil entries are skipped.
type Sinks struct {
	CPU    ThresholdSink
	Memory ThresholdSink
	Power  ThresholdSink
}

// Threshold returns the gene of p that belongs to r.
func (p OptimizationParams) Threshold(r Resource) float64 {
	switch r {
	case ResourceCPU:
		return p.CPUThreshold
	case ResourceMemory:
		return p.MemoryThreshold
	case ResourcePower:
		return p.PowerThreshold
	}
	return 0
}

// Usage returns the utilization of r in s.
func (s SystemResources) Usage(r Resource) float64 {
	switch r {
	case ResourceCPU:
		return s.CPUUsage
	case ResourceMemory:
		return s.MemoryUsage
	case ResourcePower:
		return s.PowerUsage
	}
	return 0
}

// Sink returns the consumer registered for r.
func (s Sinks) Sink(r Resource) ThresholdSink {
	switch r {
	case ResourceCPU:
		return s.CPU
	case ResourceMemory:
		return s.Memory
	case ResourcePower:
		return s.Power
	}
	return nil
}
