package monitor

import (
	"context"
	"fmt"

	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/cache"
	"github.com/snow-ghost/era/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Source combines one reader per resource into a core.TelemetrySource.
// Overlapping reads of the same resource through Reader or CurrentUsage
// share one underlying call.
type Source struct {
	readers map[core.Resource]core.UsageReader
	dedup   *cache.Deduplicator
}

// NewSource builds a source. Every reader is required.
func NewSource(cpu, memory, power core.UsageReader) *Source {
	return &Source{
		readers: map[core.Resource]core.UsageReader{
			core.ResourceCPU:    cpu,
			core.ResourceMemory: memory,
			core.ResourcePower:  power,
		},
		dedup: cache.NewDeduplicator(),
	}
}

// CurrentUsage reads all resources in parallel.
func (s *Source) CurrentUsage(ctx context.Context) (core.SystemResources, error) {
	var values [3]float64

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range core.Resources {
		g.Go(func() error {
			v, err := s.read(gctx, r)
			if err != nil {
				return fmt.Errorf("%s: %w", r, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.SystemResources{}, err
	}

	return core.SystemResources{
		CPUUsage:    values[0],
		MemoryUsage: values[1],
		PowerUsage:  values[2],
	}, nil
}

// Reader returns a deduplicated reader for r.
func (s *Source) Reader(r core.Resource) core.UsageReader {
	return core.UsageReaderFunc(func(ctx context.Context) (float64, error) {
		return s.read(ctx, r)
	})
}

// DedupStats exposes how many reads of r were shared.
func (s *Source) DedupStats(r core.Resource) cache.DedupStats {
	return s.dedup.GetStats(string(r))
}

func (s *Source) read(ctx context.Context, r core.Resource) (float64, error) {
	reader := s.readers[r]
	return cache.Do(ctx, s.dedup, string(r), func(ctx context.Context) (float64, error) {
		return reader.Read(ctx)
	})
}

// Fallback reads Primary and switches to Secondary when it fails.
type Fallback struct {
	Primary   core.UsageReader
	Secondary core.UsageReader
	Name      string
	Logger    *logging.Logger
}

func (f *Fallback) Read(ctx context.Context) (float64, error) {
	v, err := f.Primary.Read(ctx)
	if err == nil {
		return v, nil
	}
	if f.Logger != nil {
		f.Logger.Debug("Primary reader failed, using fallback", "reader", f.Name, "error", err.Error())
	}
	return f.Secondary.Read(ctx)
}
