package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsClamp(t *testing.T) {
	p := HardBounds.Clamp(OptimizationParams{CPUThreshold: 120, MemoryThreshold: 5, PowerThreshold: 7})
	assert.Equal(t, OptimizationParams{CPUThreshold: 95, MemoryThreshold: 20, PowerThreshold: 7}, p)
	assert.True(t, HardBounds.Contains(p))
	assert.False(t, HardBounds.Contains(OptimizationParams{CPUThreshold: 9, MemoryThreshold: 50, PowerThreshold: 5}))
}

func TestSeedBoundsInsideHardBounds(t *testing.T) {
	for _, pair := range [][2]Range{
		{SeedBounds.CPU, HardBounds.CPU},
		{SeedBounds.Memory, HardBounds.Memory},
		{SeedBounds.Power, HardBounds.Power},
	} {
		assert.GreaterOrEqual(t, pair[0].Min, pair[1].Min)
		assert.LessOrEqual(t, pair[0].Max, pair[1].Max)
	}
}

func TestParseLoadLevel(t *testing.T) {
	for n, want := range map[int]LoadLevel{0: LoadLight, 1: LoadMedium, 2: LoadSpike} {
		got, err := ParseLoadLevel(n)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLoadLevel(3)
	require.ErrorIs(t, err, ErrInvalidLoadLevel)
	_, err = ParseLoadLevel(-1)
	require.ErrorIs(t, err, ErrInvalidLoadLevel)

	assert.Equal(t, "SPIKE", LoadSpike.String())
	assert.Equal(t, "UNKNOWN", LoadLevel(9).String())
}

func TestHistoryPointJSON(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewHistoryPoint(ts,
		SystemResources{CPUUsage: 40, MemoryUsage: 55, PowerUsage: 6},
		OptimizationParams{CPUThreshold: 45, MemoryThreshold: 60, PowerThreshold: 6.5},
		0.93)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"cpu_threshold":45`)

	var got HistoryPoint
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, p, got)
}

func TestResourceAccessors(t *testing.T) {
	r := SystemResources{CPUUsage: 1, MemoryUsage: 2, PowerUsage: 3}
	p := OptimizationParams{CPUThreshold: 4, MemoryThreshold: 5, PowerThreshold: 6}
	want := map[Resource][2]float64{ResourceCPU: {1, 4}, ResourceMemory: {2, 5}, ResourcePower: {3, 6}}
	for _, res := range Resources {
		assert.Equal(t, want[res][0], r.Usage(res))
		assert.Equal(t, want[res][1], p.Threshold(res))
	}
}
