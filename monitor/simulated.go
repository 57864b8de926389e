package monitor

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/snow-ghost/era/core"
)

// walk is a bounded random walk pulled toward a per-load-level target.
type walk struct {
	value   float64
	step    float64
	bounds  core.Range
	targets [3]float64
}

// Simulated produces plausible usage without touching the host. Each
// resource follows a random walk that drifts toward a target chosen by
// the current load level.
type Simulated struct {
	mu    sync.Mutex
	rng   *rand.Rand
	level func() core.LoadLevel

	cpu    walk
	memory walk
	power  walk
}

// NewSimulated creates a simulated source. level may be nil for a constant
// light load.
func NewSimulated(rng *rand.Rand, level func() core.LoadLevel) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if level == nil {
		level = func() core.LoadLevel { return core.LoadLight }
	}
	return &Simulated{
		rng:    rng,
		level:  level,
		cpu:    walk{value: 50, step: 5, bounds: core.Range{Min: 5, Max: 95}, targets: [3]float64{25, 55, 90}},
		memory: walk{value: 40, step: 2.5, bounds: core.Range{Min: 10, Max: 90}, targets: [3]float64{35, 55, 80}},
		power:  walk{value: 5, step: 1, bounds: core.Range{Min: 2, Max: 12}, targets: [3]float64{4, 7, 11}},
	}
}

func (s *Simulated) advance(w *walk) float64 {
	level := s.level()
	if !level.Valid() {
		level = core.LoadLight
	}

	noise := (s.rng.Float64()*2 - 1) * w.step
	drift := (w.targets[level] - w.value) * 0.2
	w.value = w.bounds.Clamp(w.value + drift + noise)
	return w.value
}

// CurrentUsage advances all three walks once.
func (s *Simulated) CurrentUsage(ctx context.Context) (core.SystemResources, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return core.SystemResources{
		CPUUsage:    s.advance(&s.cpu),
		MemoryUsage: s.advance(&s.memory),
		PowerUsage:  s.advance(&s.power),
	}, nil
}

// Reader returns a reader advancing only the walk of r.
func (s *Simulated) Reader(r core.Resource) core.UsageReader {
	return core.UsageReaderFunc(func(ctx context.Context) (float64, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r {
		case core.ResourceMemory:
			return s.advance(&s.memory), nil
		case core.ResourcePower:
			return s.advance(&s.power), nil
		default:
			return s.advance(&s.cpu), nil
		}
	})
}
