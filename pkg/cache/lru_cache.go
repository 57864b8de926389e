package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/snow-ghost/era/pkg/journal"
)

// GenerationLog keeps the most recent generation records keyed by
// generation number for the HTTP API.
type GenerationLog struct {
	cache *lru.Cache[int, journal.GenerationRecord]
	stats CacheStats
	mu    sync.Mutex
}

// NewGenerationLog creates a log holding up to size records
func NewGenerationLog(size int) (*GenerationLog, error) {
	if size <= 0 {
		size = DefaultGenerationLogSize
	}

	g := &GenerationLog{stats: CacheStats{MaxSize: size}}

	cache, err := lru.NewWithEvict[int, journal.GenerationRecord](size, func(int, journal.GenerationRecord) {
		g.stats.Evictions++
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	g.cache = cache

	return g, nil
}

// Add stores record under its generation number
func (g *GenerationLog) Add(record journal.GenerationRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cache.Add(record.Generation, record)
}

// Get looks up one generation
func (g *GenerationLog) Get(generation int) (journal.GenerationRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, ok := g.cache.Peek(generation)
	if ok {
		g.stats.Hits++
	} else {
		g.stats.Misses++
	}
	return record, ok
}

// Recent returns up to limit records, highest generation first. A limit
// of zero or less returns everything.
func (g *GenerationLog) Recent(limit int) []journal.GenerationRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Peek leaves recency untouched, so insertion order is generation order.
	keys := g.cache.Keys()
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}

	records := make([]journal.GenerationRecord, 0, limit)
	for i := len(keys) - 1; i >= 0 && len(records) < limit; i-- {
		if record, ok := g.cache.Peek(keys[i]); ok {
			records = append(records, record)
		}
	}
	return records
}

// Len returns the number of records held
func (g *GenerationLog) Len() int {
	return g.cache.Len()
}

// Clear removes every record
func (g *GenerationLog) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cache.Purge()
}

// Stats returns cache statistics
func (g *GenerationLog) Stats() CacheStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := g.stats
	stats.Size = g.cache.Len()
	stats.CalculateHitRate()
	return stats
}
