package genetic

import (
	"math/rand/v2"

	"github.com/snow-ghost/era/core"
)

// CrossoverKind identifies the recombination strategy used for a pair.
type CrossoverKind int

const (
	// SinglePoint swaps whole genes: child1 takes CPU from parent1 and
	// memory/power from parent2, child2 the complement.
	SinglePoint CrossoverKind = iota
	// ArithmeticBlend mixes every gene with a random weight alpha.
	ArithmeticBlend
)

func (k CrossoverKind) String() string {
	if k == SinglePoint {
		return "single_point"
	}
	return "arithmetic_blend"
}

// Crossover recombines two parents into two children, picking either
// strategy with probability 0.5. Children are not clamped and carry no
// fitness.
func Crossover(parent1, parent2 Chromosome, rng *rand.Rand) (Chromosome, Chromosome) {
	child1, child2, _ := crossover(parent1, parent2, rng)
	return child1, child2
}

func crossover(parent1, parent2 Chromosome, rng *rand.Rand) (Chromosome, Chromosome, CrossoverKind) {
	if rng.Float64() < 0.5 {
		c1, c2 := SinglePointCrossover(parent1, parent2)
		return c1, c2, SinglePoint
	}
	c1, c2 := BlendCrossover(parent1, parent2, rng.Float64())
	return c1, c2, ArithmeticBlend
}

// SinglePointCrossover cuts between the CPU gene and the rest.
func SinglePointCrossover(parent1, parent2 Chromosome) (Chromosome, Chromosome) {
	p1, p2 := parent1.params, parent2.params

	child1 := parent1.withParams(core.OptimizationParams{
		CPUThreshold:    p1.CPUThreshold,
		MemoryThreshold: p2.MemoryThreshold,
		PowerThreshold:  p2.PowerThreshold,
	})
	child2 := parent2.withParams(core.OptimizationParams{
		CPUThreshold:    p2.CPUThreshold,
		MemoryThreshold: p1.MemoryThreshold,
		PowerThreshold:  p1.PowerThreshold,
	})
	return child1, child2
}

// BlendCrossover returns alpha*p1+(1-alpha)*p2 and its inverse blend.
func BlendCrossover(parent1, parent2 Chromosome, alpha float64) (Chromosome, Chromosome) {
	p1, p2 := parent1.params, parent2.params

	child1 := parent1.withParams(core.OptimizationParams{
		CPUThreshold:    blend(alpha, p1.CPUThreshold, p2.CPUThreshold),
		MemoryThreshold: blend(alpha, p1.MemoryThreshold, p2.MemoryThreshold),
		PowerThreshold:  blend(alpha, p1.PowerThreshold, p2.PowerThreshold),
	})
	child2 := parent2.withParams(core.OptimizationParams{
		CPUThreshold:    blend(1-alpha, p1.CPUThreshold, p2.CPUThreshold),
		MemoryThreshold: blend(1-alpha, p1.MemoryThreshold, p2.MemoryThreshold),
		PowerThreshold:  blend(1-alpha, p1.PowerThreshold, p2.PowerThreshold),
	})
	return child1, child2
}

func blend(alpha, a, b float64) float64 {
	return alpha*a + (1-alpha)*b
}
