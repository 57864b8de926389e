package core

import (
	"errors"
	"fmt"
	"time"
)

// SystemResources is an immutable utilization snapshot captured once per cycle.
type SystemResources struct {
	CPUUsage    float64 `json:"cpu"`    // percent
	MemoryUsage float64 `json:"memory"` // percent
	PowerUsage  float64 `json:"power"`  // watts
}

// OptimizationParams holds the three threshold genes.
type OptimizationParams struct {
	CPUThreshold    float64 `json:"cpu_threshold"`    // percent
	MemoryThreshold float64 `json:"memory_threshold"` // percent
	PowerThreshold  float64 `json:"power_threshold"`  // watts
}

// Range is an inclusive [Min, Max] interval for a gene.
type Range struct {
	Min, Max float64
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds groups one range per gene.
type Bounds struct {
	CPU    Range
	Memory Range
	Power  Range
}

var (
	// HardBounds are enforced on every chromosome at all times.
	HardBounds = Bounds{
		CPU:    Range{Min: 10, Max: 95},
		Memory: Range{Min: 20, Max: 95},
		Power:  Range{Min: 1, Max: 15},
	}

	// SeedBounds bias the first generation toward plausible operating points.
	SeedBounds = Bounds{
		CPU:    Range{Min: 30, Max: 90},
		Memory: Range{Min: 40, Max: 95},
		Power:  Range{Min: 2, Max: 10},
	}
)

// Clamp returns p with every gene limited to b.
func (b Bounds) Clamp(p OptimizationParams) OptimizationParams {
	return OptimizationParams{
		CPUThreshold:    b.CPU.Clamp(p.CPUThreshold),
		MemoryThreshold: b.Memory.Clamp(p.MemoryThreshold),
		PowerThreshold:  b.Power.Clamp(p.PowerThreshold),
	}
}

// Contains reports whether every gene of p lies inside b.
func (b Bounds) Contains(p OptimizationParams) bool {
	return b.CPU.Contains(p.CPUThreshold) &&
		b.Memory.Contains(p.MemoryThreshold) &&
		b.Power.Contains(p.PowerThreshold)
}

// HistoryPoint is one entry of the bounded observation history.
type HistoryPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryUsage     float64   `json:"memory_usage"`
	PowerUsage      float64   `json:"power_usage"`
	CPUThreshold    float64   `json:"cpu_threshold"`
	MemoryThreshold float64   `json:"memory_threshold"`
	PowerThreshold  float64   `json:"power_threshold"`
	Fitness         float64   `json:"fitness"`
}

// NewHistoryPoint builds a point from a published snapshot.
func NewHistoryPoint(ts time.Time, r SystemResources, p OptimizationParams, fitness float64) HistoryPoint {
	return HistoryPoint{
		Timestamp:       ts,
		CPUUsage:        r.CPUUsage,
		MemoryUsage:     r.MemoryUsage,
		PowerUsage:      r.PowerUsage,
		CPUThreshold:    p.CPUThreshold,
		MemoryThreshold: p.MemoryThreshold,
		PowerThreshold:  p.PowerThreshold,
		Fitness:         fitness,
	}
}

// LoadLevel is the synthetic load indicator shown to presentation layers.
type LoadLevel int

const (
	LoadLight LoadLevel = iota
	LoadMedium
	LoadSpike
)

var ErrInvalidLoadLevel = errors.New("invalid load level")

// ParseLoadLevel converts 0, 1 or 2 into a LoadLevel.
func ParseLoadLevel(n int) (LoadLevel, error) {
	l := LoadLevel(n)
	if !l.Valid() {
		return LoadLight, fmt.Errorf("%w: %d", ErrInvalidLoadLevel, n)
	}
	return l, nil
}

func (l LoadLevel) Valid() bool {
	return l >= LoadLight && l <= LoadSpike
}

func (l LoadLevel) String() string {
	switch l {
	case LoadLight:
		return "LIGHT"
	case LoadMedium:
		return "MEDIUM"
	case LoadSpike:
		return "SPIKE"
	default:
		return "UNKNOWN"
	}
}
