package optimizer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/snow-ghost/era/core"
)

// Snapshot is a consistent copy of the published optimizer state.
type Snapshot struct {
	Resources  core.SystemResources    `json:"current"`
	Params     core.OptimizationParams `json:"optimized"`
	LoadLevel  core.LoadLevel          `json:"load_level"`
	Fitness    float64                 `json:"fitness"`
	Generation int                     `json:"generation"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// State holds the last published resources and thresholds. The optimizer
// loop is its only writer; readers get copies.
type State struct {
	mu         sync.RWMutex
	resources  core.SystemResources
	params     core.OptimizationParams
	fitness    float64
	generation int
	updatedAt  time.Time

	loadLevel atomic.Int32
}

// NewState returns a state at load level l with no published generation.
func NewState(l core.LoadLevel) *State {
	s := &State{}
	s.loadLevel.Store(int32(l))
	return s
}

// publish replaces resources and thresholds in one critical section.
func (s *State) publish(r core.SystemResources, p core.OptimizationParams, fitness float64, generation int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resources = r
	s.params = p
	s.fitness = fitness
	s.generation = generation
	s.updatedAt = at
}

// Snapshot returns the published pair together with the load level.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Resources:  s.resources,
		Params:     s.params,
		LoadLevel:  s.LoadLevel(),
		Fitness:    s.fitness,
		Generation: s.generation,
		UpdatedAt:  s.updatedAt,
	}
}

// Params returns the last published thresholds.
func (s *State) Params() core.OptimizationParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

func (s *State) LoadLevel() core.LoadLevel {
	return core.LoadLevel(s.loadLevel.Load())
}

// SetLoadLevel stores l. Invalid levels are rejected.
func (s *State) SetLoadLevel(l core.LoadLevel) error {
	if !l.Valid() {
		_, err := core.ParseLoadLevel(int(l))
		return err
	}
	s.loadLevel.Store(int32(l))
	return nil
}
