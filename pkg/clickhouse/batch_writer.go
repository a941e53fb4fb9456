package clickhouse

import (
	"context"
	"sync"
	"time"

	"optix/pkg/logger"
)

// FlushFunc writes one batch, typically as a single INSERT
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// BatchWriter accumulates rows in memory and flushes them in batches.
// Add never blocks on I/O: a full batch wakes the background loop.
type BatchWriter[T any] struct {
	flushFunc FlushFunc[T]
	log       *logger.Logger

	maxBatchSize int           // wake the flush loop at this size
	maxAge       time.Duration // flush at least this often
	maxBuffered  int           // oldest rows are dropped beyond this
	tableName    string

	mu        sync.Mutex
	buffer    []T
	dropped   int
	lastFlush time.Time
	running   bool

	flushMu sync.Mutex // serializes flushFunc calls
	kick    chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// BatchWriterConfig contains configuration for BatchWriter
type BatchWriterConfig[T any] struct {
	FlushFunc    FlushFunc[T]
	TableName    string
	MaxBatchSize int           // Default: 500
	MaxAge       time.Duration // Default: 5s
	MaxBuffered  int           // Default: 20 x MaxBatchSize
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter[T any](cfg BatchWriterConfig[T]) *BatchWriter[T] {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}
	if cfg.MaxBuffered < cfg.MaxBatchSize {
		cfg.MaxBuffered = 20 * cfg.MaxBatchSize
	}

	return &BatchWriter[T]{
		flushFunc:    cfg.FlushFunc,
		buffer:       make([]T, 0, cfg.MaxBatchSize),
		maxBatchSize: cfg.MaxBatchSize,
		maxAge:       cfg.MaxAge,
		maxBuffered:  cfg.MaxBuffered,
		tableName:    cfg.TableName,
		lastFlush:    time.Now(),
		kick:         make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		log:          logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start begins the background flush loop
func (bw *BatchWriter[T]) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.running {
		bw.mu.Unlock()
		return
	}
	bw.running = true
	bw.mu.Unlock()

	bw.wg.Add(1)
	go bw.flushLoop(ctx)

	bw.log.Infow("BatchWriter started", "max_batch_size", bw.maxBatchSize, "max_age", bw.maxAge)
}

// Add buffers rows. When the buffer exceeds MaxBuffered the oldest rows are dropped
func (bw *BatchWriter[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, items...)
	if over := len(bw.buffer) - bw.maxBuffered; over > 0 {
		bw.buffer = append(bw.buffer[:0], bw.buffer[over:]...)
		bw.dropped += over
	}
	full := len(bw.buffer) >= bw.maxBatchSize
	bw.mu.Unlock()

	if full {
		select {
		case bw.kick <- struct{}{}:
		default:
		}
	}
}

// Flush writes all buffered rows in batches of at most MaxBatchSize
func (bw *BatchWriter[T]) Flush(ctx context.Context) error {
	bw.flushMu.Lock()
	defer bw.flushMu.Unlock()

	bw.mu.Lock()
	pending := bw.buffer
	bw.buffer = make([]T, 0, bw.maxBatchSize)
	bw.lastFlush = time.Now()
	bw.mu.Unlock()

	for len(pending) > 0 {
		n := len(pending)
		if n > bw.maxBatchSize {
			n = bw.maxBatchSize
		}
		batch := pending[:n]

		start := time.Now()
		if err := bw.flushFunc(ctx, batch); err != nil {
			bw.log.Errorw("Failed to flush batch",
				"rows", len(batch),
				"remaining", len(pending)-n,
				"duration", time.Since(start),
				"error", err,
			)
			bw.requeue(pending)
			return err
		}
		bw.log.Debugw("Flushed batch", "rows", len(batch), "duration", time.Since(start))
		pending = pending[n:]
	}
	return nil
}

// requeue puts rows that were not written back ahead of rows added since,
// keeping the MaxBuffered cap by dropping the oldest
func (bw *BatchWriter[T]) requeue(rows []T) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	merged := make([]T, 0, len(rows)+len(bw.buffer))
	merged = append(merged, rows...)
	merged = append(merged, bw.buffer...)
	if over := len(merged) - bw.maxBuffered; over > 0 {
		merged = merged[over:]
		bw.dropped += over
	}
	bw.buffer = merged
}

// flushLoop runs in background and flushes on size or age
func (bw *BatchWriter[T]) flushLoop(ctx context.Context) {
	defer bw.wg.Done()

	ticker := time.NewTicker(bw.maxAge)
	defer ticker.Stop()

	final := func() {
		if err := bw.Flush(context.Background()); err != nil {
			bw.log.Errorw("Final flush failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			final()
			return
		case <-bw.stopCh:
			final()
			return
		case <-bw.kick:
			_ = bw.Flush(ctx)
		case <-ticker.C:
			if bw.BufferSize() > 0 {
				_ = bw.Flush(ctx)
			}
		}
	}
}

// Stop flushes remaining rows and waits for the loop to exit
func (bw *BatchWriter[T]) Stop(ctx context.Context) error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return nil
	}
	bw.running = false
	bw.mu.Unlock()

	close(bw.stopCh)

	done := make(chan struct{})
	go func() {
		bw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		bw.log.Info("BatchWriter stopped gracefully")
		return nil
	case <-ctx.Done():
		bw.log.Warn("BatchWriter stop timed out")
		return ctx.Err()
	}
}

// BufferSize returns the current buffer size (for monitoring)
func (bw *BatchWriter[T]) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// BatchWriterStats describes the writer for monitoring
type BatchWriterStats struct {
	BufferSize   int
	Dropped      int
	LastFlushAge time.Duration
	MaxBatchSize int
	MaxAge       time.Duration
	Running      bool
}

// Stats returns current statistics
func (bw *BatchWriter[T]) Stats() BatchWriterStats {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	return BatchWriterStats{
		BufferSize:   len(bw.buffer),
		Dropped:      bw.dropped,
		LastFlushAge: time.Since(bw.lastFlush),
		MaxBatchSize: bw.maxBatchSize,
		MaxAge:       bw.maxAge,
		Running:      bw.running,
	}
}
