package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent identical reads (the optimizer and the
// actuators polling the same procfs file) into a single call.
type Deduplicator struct {
	group singleflight.Group
	mu    sync.RWMutex
	stats map[string]*DedupStats
}

// DedupStats represents deduplication statistics
type DedupStats struct {
	Requests     int64 `json:"requests"`
	Deduplicated int64 `json:"deduplicated"`
}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		stats: make(map[string]*DedupStats),
	}
}

// Do runs fn once for every group of concurrent callers sharing key. fn
// gets the first caller's context without its cancellation, so a caller
// whose ctx ends first returns early while the shared call keeps running
// for the others.
func Do[T any](ctx context.Context, d *Deduplicator, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key, func() (interface{}, error) {
		return fn(shared)
	})

	var zero T
	select {
	case <-ctx.Done():
		d.updateStats(key, false)
		return zero, ctx.Err()
	case res := <-ch:
		d.updateStats(key, res.Shared)
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// updateStats updates deduplication statistics
func (d *Deduplicator) updateStats(key string, deduplicated bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats, exists := d.stats[key]
	if !exists {
		stats = &DedupStats{}
		d.stats[key] = stats
	}

	stats.Requests++
	if deduplicated {
		stats.Deduplicated++
	}
}

// GetStats returns deduplication statistics for a key
func (d *Deduplicator) GetStats(key string) DedupStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if stats, exists := d.stats[key]; exists {
		return *stats
	}
	return DedupStats{}
}

// GetDedupRate calculates the deduplication rate for a key
func (d *Deduplicator) GetDedupRate(key string) float64 {
	stats := d.GetStats(key)
	if stats.Requests == 0 {
		return 0.0
	}
	return float64(stats.Deduplicated) / float64(stats.Requests)
}
