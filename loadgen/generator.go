// Package loadgen produces synthetic CPU and memory pressure that follows
// the optimizer's load level, so the control loop has something to track.
package loadgen

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Profile is the work done at one load level.
type Profile struct {
	Iterations int           // trigonometric iterations per burst
	Pause      time.Duration // sleep between bursts
	MemoryMiB  int           // resident memory held
}

// Profiles is indexed by core.LoadLevel.
var Profiles = [3]Profile{
	core.LoadLight:  {Iterations: 10_000_000, Pause: 800 * time.Millisecond, MemoryMiB: 10},
	core.LoadMedium: {Iterations: 50_000_000, Pause: 400 * time.Millisecond, MemoryMiB: 30},
	core.LoadSpike:  {Iterations: 200_000_000, Pause: 100 * time.Millisecond, MemoryMiB: 80},
}

const (
	mib      = 1 << 20
	pageSize = 4096

	// iterations between cancellation checks
	chunk = 100_000
)

// Config tunes the generator.
type Config struct {
	// Scale multiplies the iteration counts; 1 reproduces Profiles.
	Scale float64
	// Workers is the number of CPU burners.
	Workers int
}

// Generator burns CPU and holds memory according to the current level.
type Generator struct {
	level   func() core.LoadLevel
	scale   float64
	workers int
	logger  *logging.Logger

	blockSize      int
	memoryInterval time.Duration

	mu     sync.Mutex
	blocks [][]byte

	bursts atomic.Int64
	sink   atomic.Uint64
}

// New creates a generator reading the level from level.
func New(level func() core.LoadLevel, cfg Config, logger *logging.Logger) *Generator {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		level:          level,
		scale:          cfg.Scale,
		workers:        cfg.Workers,
		logger:         logger.WithComponent("loadgen"),
		blockSize:      mib,
		memoryInterval: time.Second,
	}
}

func (g *Generator) profile() Profile {
	l := g.level()
	if !l.Valid() {
		l = core.LoadLight
	}
	return Profiles[l]
}

// Run generates load until ctx is cancelled and then releases the memory.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("Load generator started", "workers", g.workers, "scale", g.scale)

	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < g.workers; i++ {
		eg.Go(func() error {
			g.burnLoop(ctx)
			return nil
		})
	}
	eg.Go(func() error {
		g.memoryLoop(ctx)
		return nil
	})

	err := eg.Wait()
	g.resize(0)
	g.logger.Info("Load generator stopped", "bursts", g.bursts.Load())
	return err
}

func (g *Generator) burnLoop(ctx context.Context) {
	for {
		p := g.profile()
		if !g.burn(ctx, int(float64(p.Iterations)*g.scale)) {
			return
		}
		g.bursts.Add(1)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Pause):
		}
	}
}

// burn runs n iterations of sin·cos, returning false when cancelled.
func (g *Generator) burn(ctx context.Context, n int) bool {
	result := 0.0
	for i := 0; i < n; i++ {
		if i%chunk == 0 && ctx.Err() != nil {
			return false
		}
		result += math.Sin(float64(i)) * math.Cos(float64(i))
	}
	g.sink.Store(math.Float64bits(result))
	return true
}

func (g *Generator) memoryLoop(ctx context.Context) {
	ticker := time.NewTicker(g.memoryInterval)
	defer ticker.Stop()

	for {
		g.resize(g.profile().MemoryMiB)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// resize holds exactly n blocks and touches every page of each so the
// memory stays resident.
func (g *Generator) resize(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.blocks) > n {
		clear(g.blocks[n:])
		g.blocks = g.blocks[:n]
	}
	for len(g.blocks) < n {
		g.blocks = append(g.blocks, make([]byte, g.blockSize))
	}
	for _, b := range g.blocks {
		for i := 0; i < len(b); i += pageSize {
			b[i]++
		}
	}
}

// HeldBlocks returns the number of memory blocks currently held.
func (g *Generator) HeldBlocks() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.blocks)
}

// Bursts returns how many CPU bursts completed.
func (g *Generator) Bursts() int64 {
	return g.bursts.Load()
}
