package journal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingStore struct {
	*MemoryStore
	release chan struct{}
	closed  atomic.Bool
}

func (b *blockingStore) Record(ctx context.Context, record GenerationRecord) error {
	<-b.release
	return b.MemoryStore.Record(ctx, record)
}

func (b *blockingStore) Close() error {
	b.closed.Store(true)
	return nil
}

func TestRecorder_WritesAndFlushesOnCancel(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, 16, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	for _, r := range sampleRecords("run", 10) {
		rec.Record(r)
	}

	require.Eventually(t, func() bool { return rec.Written() == 10 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	records, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.Zero(t, rec.Dropped())
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	var drops atomic.Int64
	rec := NewRecorder(store, 2, nil, func() { drops.Add(1) })

	// Nothing drains yet, so only the buffer capacity fits.
	for _, r := range sampleRecords("run", 5) {
		rec.Record(r)
	}
	assert.Equal(t, int64(3), rec.Dropped())
	assert.Equal(t, int64(3), drops.Load())

	close(store.release)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	assert.Equal(t, int64(2), rec.Written())
	assert.True(t, store.closed.Load())
}
