package journal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/snow-ghost/era/pkg/logging"
)

// Recorder decouples the optimizer loop from store latency: Record never
// blocks, and a background Run drains the buffer into the store.
type Recorder struct {
	store   Store
	records chan GenerationRecord
	logger  *logging.Logger
	onDrop  func()
	dropped atomic.Int64
	written atomic.Int64
}

// NewRecorder buffers up to bufferSize records. onDrop may be nil.
func NewRecorder(store Store, bufferSize int, logger *logging.Logger, onDrop func()) *Recorder {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{
		store:   store,
		records: make(chan GenerationRecord, bufferSize),
		logger:  logger.WithComponent("journal"),
		onDrop:  onDrop,
	}
}

// Record enqueues record, dropping it when the buffer is full.
func (r *Recorder) Record(record GenerationRecord) {
	select {
	case r.records <- record:
	default:
		r.dropped.Add(1)
		if r.onDrop != nil {
			r.onDrop()
		}
	}
}

// Run writes buffered records until ctx is done, then flushes what is left
// with a short grace period and closes the store.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case record := <-r.records:
			r.write(ctx, record)
		case <-ctx.Done():
			return r.drain()
		}
	}
}

func (r *Recorder) drain() error {
	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case record := <-r.records:
			r.write(flushCtx, record)
		default:
			return r.store.Close()
		}
	}
}

func (r *Recorder) write(ctx context.Context, record GenerationRecord) {
	if err := r.store.Record(ctx, record); err != nil {
		r.logger.Warn("Failed to write generation record", "generation", record.Generation, "error", err.Error())
		return
	}
	r.written.Add(1)
}

// Dropped returns how many records were discarded
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Written returns how many records reached the store
func (r *Recorder) Written() int64 {
	return r.written.Load()
}
