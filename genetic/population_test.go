package genetic

import (
	"testing"

	"github.com/snow-ghost/era/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPopulation_Empty(t *testing.T) {
	_, err := NewPopulation(0, newRand(1), DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyPopulation)

	_, err = NewPopulation(-3, newRand(1), DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyPopulation)

	_, err = NewPopulationFrom(nil, newRand(1), DefaultOptions())
	require.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestPopulation_EliteCount(t *testing.T) {
	for size, want := range map[int]int{1: 1, 3: 1, 4: 1, 5: 1, 10: 2, 20: 4, 21: 4} {
		p, err := NewPopulation(size, newRand(2), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, want, p.EliteCount(), "size %d", size)
	}
}

func TestPopulation_EvolveKeepsSize(t *testing.T) {
	usage := core.SystemResources{CPUUsage: 55, MemoryUsage: 70, PowerUsage: 4}
	for size := 1; size <= 21; size++ {
		p, err := NewPopulation(size, newRand(uint64(size)), DefaultOptions())
		require.NoError(t, err)

		for gen := 1; gen <= 5; gen++ {
			stats := p.Evolve(usage)
			require.Equal(t, size, p.Size())
			assert.Equal(t, gen, stats.Generation)
			assert.Equal(t, gen, p.Generation())
		}
	}
}

func TestPopulation_GenesStayInBounds(t *testing.T) {
	p, err := NewPopulation(20, newRand(5), Options{MutationRate: 0.9, EliteFraction: 0.2, Sigma: Sigma{CPU: 40, Memory: 40, Power: 4}})
	require.NoError(t, err)

	for gen := 0; gen < 100; gen++ {
		p.Evolve(core.SystemResources{CPUUsage: 99, MemoryUsage: 5, PowerUsage: 20})
		for _, c := range p.Chromosomes() {
			require.True(t, core.HardBounds.Contains(c.Params()), "gen %d params %+v", gen, c.Params())
		}
	}
}

func TestPopulation_ElitismMonotonicUnderConstantUsage(t *testing.T) {
	p, err := NewPopulation(12, newRand(8), DefaultOptions())
	require.NoError(t, err)

	usage := core.SystemResources{CPUUsage: 70, MemoryUsage: 45, PowerUsage: 7}
	prev := p.Evolve(usage).Best
	for gen := 0; gen < 40; gen++ {
		stats := p.Evolve(usage)
		assert.GreaterOrEqual(t, stats.Best, prev)
		assert.Equal(t, stats.Best, p.Best().Fitness())
		prev = stats.Best
	}
}

func TestPopulation_ElitesCarriedVerbatim(t *testing.T) {
	members := []Chromosome{
		NewChromosome(core.OptimizationParams{CPUThreshold: 50, MemoryThreshold: 50, PowerThreshold: 5}),
		NewChromosome(core.OptimizationParams{CPUThreshold: 90, MemoryThreshold: 90, PowerThreshold: 14}),
		NewChromosome(core.OptimizationParams{CPUThreshold: 30, MemoryThreshold: 30, PowerThreshold: 2}),
		NewChromosome(core.OptimizationParams{CPUThreshold: 70, MemoryThreshold: 70, PowerThreshold: 9}),
		NewChromosome(core.OptimizationParams{CPUThreshold: 60, MemoryThreshold: 40, PowerThreshold: 3}),
	}
	p, err := NewPopulationFrom(members, newRand(9), DefaultOptions())
	require.NoError(t, err)

	usage := core.SystemResources{CPUUsage: 50, MemoryUsage: 50, PowerUsage: 5}
	stats := p.Evolve(usage)

	require.Equal(t, 1, stats.Elites)
	first := p.Chromosomes()[0]
	assert.Equal(t, members[0].Params(), first.Params())
	assert.Equal(t, 1.0, first.Fitness())
	assert.Equal(t, 1.0, p.Best().Fitness())
}

func TestPopulation_DegenerateFitnessUsesUniformSelection(t *testing.T) {
	p, err := NewPopulation(10, newRand(10), DefaultOptions())
	require.NoError(t, err)

	// Usage far outside every threshold drives every score below zero.
	usage := core.SystemResources{CPUUsage: 400, MemoryUsage: 400, PowerUsage: 200}
	var stats Stats
	require.NotPanics(t, func() { stats = p.Evolve(usage) })
	assert.True(t, stats.UniformSelection)
	assert.Less(t, stats.Best, 0.0)
	assert.Equal(t, 10, p.Size())
}

func TestPopulation_SingleMember(t *testing.T) {
	p, err := NewPopulation(1, newRand(4), DefaultOptions())
	require.NoError(t, err)

	before := p.Chromosomes()[0].Params()
	p.Evolve(core.SystemResources{CPUUsage: 50, MemoryUsage: 50, PowerUsage: 5})
	assert.Equal(t, 1, p.Size())
	assert.Equal(t, before, p.Best().Params())
}

func TestPopulation_TracksConstantUsage(t *testing.T) {
	p, err := NewPopulation(20, newRand(42), DefaultOptions())
	require.NoError(t, err)

	usage := core.SystemResources{CPUUsage: 85, MemoryUsage: 60, PowerUsage: 6}
	for gen := 0; gen < 50; gen++ {
		p.Evolve(usage)
	}

	best := p.Best().Params()
	assert.InDelta(t, 85, best.CPUThreshold, 10)
	assert.True(t, core.HardBounds.Contains(best))
}

func TestPopulation_ChromosomesReturnsCopy(t *testing.T) {
	p, err := NewPopulation(3, newRand(6), DefaultOptions())
	require.NoError(t, err)

	snapshot := p.Chromosomes()
	snapshot[0] = NewChromosome(core.OptimizationParams{})
	assert.NotEqual(t, core.OptimizationParams{}, p.Chromosomes()[0].Params())
}
