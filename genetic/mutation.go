package genetic

import (
	"math/rand/v2"

	"github.com/snow-ghost/era/core"
)

// Sigma is the standard deviation of the Gaussian noise added per gene.
type Sigma struct {
	CPU    float64
	Memory float64
	Power  float64
}

// DefaultSigma is 5 points for CPU and memory and 0.5 W for power.
var DefaultSigma = Sigma{CPU: 5, Memory: 5, Power: 0.5}

// Mutate perturbs each gene independently with probability rate using
// DefaultSigma, then clamps it to the hard bounds. Untouched genes keep
// their value.
func Mutate(c *Chromosome, rate float64, rng *rand.Rand) {
	MutateWithSigma(c, rate, DefaultSigma, rng)
}

// MutateWithSigma is Mutate with explicit noise levels.
func MutateWithSigma(c *Chromosome, rate float64, sigma Sigma, rng *rand.Rand) {
	p := c.params
	p.CPUThreshold = perturb(p.CPUThreshold, rate, sigma.CPU, core.HardBounds.CPU, rng)
	p.MemoryThreshold = perturb(p.MemoryThreshold, rate, sigma.Memory, core.HardBounds.Memory, rng)
	p.PowerThreshold = perturb(p.PowerThreshold, rate, sigma.Power, core.HardBounds.Power, rng)
	c.params = p
}

func perturb(v, rate, sigma float64, bounds core.Range, rng *rand.Rand) float64 {
	if rng.Float64() >= rate {
		return v
	}
	return bounds.Clamp(v + rng.NormFloat64()*sigma)
}
