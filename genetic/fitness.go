package genetic

import (
	"math"

	"github.com/snow-ghost/era/core"
)

// Weights are the per-resource contributions to the combined fitness.
type Weights struct {
	CPU    float64
	Memory float64
	Power  float64
}

// FitnessEvaluator scores thresholds by how closely they track usage, with
// multiplicative penalties for under- and over-provisioning. Scores are not
// clamped and may be negative; selection only needs relative ordering.
type FitnessEvaluator struct {
	Weights Weights

	// Distance normalization scales: 100 for percentages, 10 for watts.
	CPUScale    float64
	MemoryScale float64
	PowerScale  float64

	// A threshold below UnderRatio*usage is multiplied by UnderPenalty,
	// one above OverRatio*usage by OverPenalty. Each resource compounds.
	UnderRatio   float64
	UnderPenalty float64
	OverRatio    float64
	OverPenalty  float64
}

// DefaultEvaluator is the evaluator used by Chromosome.CalculateFitness.
var DefaultEvaluator = NewFitnessEvaluator()

func NewFitnessEvaluator() *FitnessEvaluator {
	return &FitnessEvaluator{
		Weights:      Weights{CPU: 0.4, Memory: 0.4, Power: 0.2},
		CPUScale:     100,
		MemoryScale:  100,
		PowerScale:   10,
		UnderRatio:   0.7,
		UnderPenalty: 0.8,
		OverRatio:    1.3,
		OverPenalty:  0.9,
	}
}

// Evaluate returns the fitness of chromosome against resources without
// touching the chromosome. It is deterministic.
func (e *FitnessEvaluator) Evaluate(chromosome Chromosome, resources core.SystemResources) float64 {
	return e.Score(chromosome.params, resources)
}

// Score computes the fitness of a parameter set.
func (e *FitnessEvaluator) Score(p core.OptimizationParams, r core.SystemResources) float64 {
	cpuTerm := 1 - math.Abs(r.CPUUsage-p.CPUThreshold)/e.CPUScale
	memTerm := 1 - math.Abs(r.MemoryUsage-p.MemoryThreshold)/e.MemoryScale
	powerTerm := 1 - math.Abs(r.PowerUsage-p.PowerThreshold)/e.PowerScale

	fitness := e.Weights.CPU*cpuTerm + e.Weights.Memory*memTerm + e.Weights.Power*powerTerm

	fitness *= e.penalty(p.CPUThreshold, r.CPUUsage)
	fitness *= e.penalty(p.MemoryThreshold, r.MemoryUsage)
	fitness *= e.penalty(p.PowerThreshold, r.PowerUsage)

	return fitness
}

func (e *FitnessEvaluator) penalty(threshold, usage float64) float64 {
	factor := 1.0
	if threshold < usage*e.UnderRatio {
		factor *= e.UnderPenalty
	}
	if threshold > usage*e.OverRatio {
		factor *= e.OverPenalty
	}
	return factor
}
