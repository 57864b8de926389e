package genetic

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/snow-ghost/era/core"
)

var ErrEmptyPopulation = errors.New("population size must be at least 1")

// Options tunes the evolution cycle.
type Options struct {
	MutationRate  float64
	EliteFraction float64
	Sigma         Sigma
	Evaluator     *FitnessEvaluator
}

// DefaultOptions uses 10% mutation and 20% elites.
func DefaultOptions() Options {
	return Options{
		MutationRate:  0.1,
		EliteFraction: 0.2,
		Sigma:         DefaultSigma,
		Evaluator:     DefaultEvaluator,
	}
}

// Stats summarizes a generation right after it was built.
type Stats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Worst      float64 `json:"worst"`
	Average    float64 `json:"average"`
	Elites     int     `json:"elites"`
	// UniformSelection is set when every weight was non-positive.
	UniformSelection bool `json:"uniform_selection"`
}

// Population is an ordered set of exactly N chromosomes evolved by
// generational replacement. It is owned by a single goroutine and is not
// safe for concurrent use.
type Population struct {
	chromosomes []Chromosome
	rng         *rand.Rand
	opts        Options
	generation  int
}

// NewPopulation seeds size random chromosomes. rng must not be nil.
func NewPopulation(size int, rng *rand.Rand, opts Options) (*Population, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrEmptyPopulation, size)
	}
	if opts.Evaluator == nil {
		opts.Evaluator = DefaultEvaluator
	}

	chromosomes := make([]Chromosome, size)
	for i := range chromosomes {
		chromosomes[i] = NewRandomChromosome(rng)
	}

	return &Population{chromosomes: chromosomes, rng: rng, opts: opts}, nil
}

// NewPopulationFrom wraps existing chromosomes, mainly for tests.
func NewPopulationFrom(chromosomes []Chromosome, rng *rand.Rand, opts Options) (*Population, error) {
	if len(chromosomes) < 1 {
		return nil, ErrEmptyPopulation
	}
	if opts.Evaluator == nil {
		opts.Evaluator = DefaultEvaluator
	}
	return &Population{chromosomes: append([]Chromosome(nil), chromosomes...), rng: rng, opts: opts}, nil
}

// Size returns N.
func (p *Population) Size() int { return len(p.chromosomes) }

// Generation returns the number of completed Evolve calls.
func (p *Population) Generation() int { return p.generation }

// Chromosomes returns a copy of the current members in order.
func (p *Population) Chromosomes() []Chromosome {
	return append([]Chromosome(nil), p.chromosomes...)
}

// EliteCount is max(1, floor(N*EliteFraction)).
func (p *Population) EliteCount() int {
	n := int(math.Floor(float64(len(p.chromosomes)) * p.opts.EliteFraction))
	if n < 1 {
		n = 1
	}
	if n > len(p.chromosomes) {
		n = len(p.chromosomes)
	}
	return n
}

// Evolve runs one generational-replacement cycle against a single snapshot:
// score, sort, keep elites, fill the rest with mutated offspring of
// roulette-selected parents. The new members are scored against the same
// snapshot so Best reflects the generation just built; every score is
// recomputed from scratch on the next call.
func (p *Population) Evolve(current core.SystemResources) Stats {
	eval := p.opts.Evaluator
	for i := range p.chromosomes {
		p.chromosomes[i].fitness = eval.Score(p.chromosomes[i].params, current)
	}

	sort.SliceStable(p.chromosomes, func(i, j int) bool {
		return p.chromosomes[i].fitness > p.chromosomes[j].fitness
	})

	size := len(p.chromosomes)
	elites := p.EliteCount()

	next := make([]Chromosome, 0, size)
	next = append(next, p.chromosomes[:elites]...)

	weights := make([]float64, size)
	for i, c := range p.chromosomes {
		weights[i] = c.fitness
	}
	wheel := NewRouletteWheel(weights)

	for len(next) < size {
		i, j := wheel.SpinPair(p.rng)
		child1, child2 := Crossover(p.chromosomes[i], p.chromosomes[j], p.rng)

		MutateWithSigma(&child1, p.opts.MutationRate, p.opts.Sigma, p.rng)
		MutateWithSigma(&child2, p.opts.MutationRate, p.opts.Sigma, p.rng)

		next = append(next, child1)
		if len(next) < size {
			next = append(next, child2)
		}
	}

	for i := elites; i < size; i++ {
		next[i].fitness = eval.Score(next[i].params, current)
	}

	p.chromosomes = next
	p.generation++

	stats := p.stats()
	stats.Elites = elites
	stats.UniformSelection = wheel.Uniform()
	return stats
}

// Best returns the member with the highest fitness.
func (p *Population) Best() Chromosome {
	best := p.chromosomes[0]
	for _, c := range p.chromosomes[1:] {
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

func (p *Population) stats() Stats {
	s := Stats{
		Generation: p.generation,
		Best:       p.chromosomes[0].fitness,
		Worst:      p.chromosomes[0].fitness,
	}

	total := 0.0
	for _, c := range p.chromosomes {
		s.Best = math.Max(s.Best, c.fitness)
		s.Worst = math.Min(s.Worst, c.fitness)
		total += c.fitness
	}
	s.Average = total / float64(len(p.chromosomes))
	return s
}
