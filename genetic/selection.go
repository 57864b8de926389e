package genetic

import "math/rand/v2"

// RouletteWheel is a fitness-proportionate selection distribution.
// Non-positive weights never win a spin; when no weight is positive the
// wheel degrades to uniform selection.
type RouletteWheel struct {
	cumulative []float64
	total      float64
}

// NewRouletteWheel builds a wheel over weights. It panics on an empty slice,
// which Population rules out at construction.
func NewRouletteWheel(weights []float64) *RouletteWheel {
	if len(weights) == 0 {
		panic("genetic: roulette wheel needs at least one weight")
	}

	w := &RouletteWheel{cumulative: make([]float64, len(weights))}
	for i, weight := range weights {
		if weight > 0 {
			w.total += weight
		}
		w.cumulative[i] = w.total
	}
	return w
}

// Uniform reports whether the wheel fell back to uniform selection.
func (w *RouletteWheel) Uniform() bool {
	return !(w.total > 0)
}

// Spin draws one index.
func (w *RouletteWheel) Spin(rng *rand.Rand) int {
	n := len(w.cumulative)
	if w.Uniform() {
		return rng.IntN(n)
	}

	spin := rng.Float64() * w.total
	last := 0
	for i, cum := range w.cumulative {
		if w.weightAt(i) <= 0 {
			continue
		}
		last = i
		if spin < cum {
			return i
		}
	}
	// Only reachable through rounding at the top of the wheel.
	return last
}

// SpinPair draws two indices, redrawing the second while it equals the
// first and another candidate with a chance of winning exists.
func (w *RouletteWheel) SpinPair(rng *rand.Rand) (int, int) {
	first := w.Spin(rng)
	if !w.hasAlternative(first) {
		return first, first
	}
	second := w.Spin(rng)
	for second == first {
		second = w.Spin(rng)
	}
	return first, second
}

func (w *RouletteWheel) hasAlternative(idx int) bool {
	n := len(w.cumulative)
	if n < 2 {
		return false
	}
	if w.Uniform() {
		return true
	}
	for i := range w.cumulative {
		if i != idx && w.weightAt(i) > 0 {
			return true
		}
	}
	return false
}

func (w *RouletteWheel) weightAt(i int) float64 {
	if i == 0 {
		return w.cumulative[0]
	}
	return w.cumulative[i] - w.cumulative[i-1]
}
