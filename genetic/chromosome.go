// Package genetic implements the threshold genotype and the operators that
// evolve a population of them against live utilization snapshots.
package genetic

import (
	"math/rand/v2"

	"github.com/snow-ghost/era/core"
)

// Chromosome is a candidate set of thresholds plus its fitness for the
// snapshot it was last scored against. It has value semantics: copies never
// share state, and operators always produce new values.
type Chromosome struct {
	params  core.OptimizationParams
	fitness float64
}

// NewChromosome builds a chromosome carrying exactly the given genes.
func NewChromosome(params core.OptimizationParams) Chromosome {
	return Chromosome{params: params}
}

// NewRandomChromosome draws each gene uniformly from its seed range.
func NewRandomChromosome(rng *rand.Rand) Chromosome {
	return NewChromosome(core.OptimizationParams{
		CPUThreshold:    uniform(rng, core.SeedBounds.CPU),
		MemoryThreshold: uniform(rng, core.SeedBounds.Memory),
		PowerThreshold:  uniform(rng, core.SeedBounds.Power),
	})
}

func uniform(rng *rand.Rand, r core.Range) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// CalculateFitness scores the chromosome against current and caches the result.
func (c *Chromosome) CalculateFitness(current core.SystemResources) {
	c.fitness = DefaultEvaluator.Score(c.params, current)
}

// Params returns a copy of the genes.
func (c Chromosome) Params() core.OptimizationParams {
	return c.params
}

// Fitness returns the last computed score (0 until scored).
func (c Chromosome) Fitness() float64 {
	return c.fitness
}

// withParams returns a copy carrying p and a reset fitness.
func (c Chromosome) withParams(p core.OptimizationParams) Chromosome {
	return Chromosome{params: p}
}
