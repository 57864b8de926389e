package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	records []GenerationRecord
	nextID  int64
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Record appends a record
func (m *MemoryStore) Record(ctx context.Context, record GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, record)
	return nil
}

// List retrieves records matching filter, newest generation first
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]GenerationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []GenerationRecord
	for _, record := range m.records {
		if filter.matches(record) {
			result = append(result, record)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Close closes the store
func (m *MemoryStore) Close() error {
	return nil
}
