package optimizer

import (
	"sync"

	"github.com/snow-ghost/era/core"
)

// DefaultHistoryCapacity keeps about two minutes of points at 1 Hz.
const DefaultHistoryCapacity = 120

// History is a bounded FIFO of observation points. It has its own lock,
// independent of State.
type History struct {
	mu     sync.RWMutex
	points []core.HistoryPoint
	start  int
	size   int
}

// NewHistory creates a history holding at most capacity points.
// Capacities below 1 fall back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{points: make([]core.HistoryPoint, capacity)}
}

// Append adds p, evicting the oldest point when full.
func (h *History) Append(p core.HistoryPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	capacity := len(h.points)
	if h.size < capacity {
		h.points[(h.start+h.size)%capacity] = p
		h.size++
		return
	}
	h.points[h.start] = p
	h.start = (h.start + 1) % capacity
}

// Points returns a copy ordered oldest to newest.
func (h *History) Points() []core.HistoryPoint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]core.HistoryPoint, h.size)
	for i := range out {
		out[i] = h.points[(h.start+i)%len(h.points)]
	}
	return out
}

// Len returns the number of stored points.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.points)
}
