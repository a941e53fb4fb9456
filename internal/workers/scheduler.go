package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"optix/internal/metrics"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// Scheduler runs registered workers on their own tickers
type Scheduler struct {
	workers []Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	log     *logger.Logger
	started bool
}

// NewScheduler creates a new worker scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		log: logger.Component("scheduler"),
	}
}

// RegisterWorker adds a worker. Registration after Start is ignored
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Cannot register worker after scheduler has started", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start launches every enabled worker. Each runs once immediately
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.Wrapf(errors.ErrInternal, "scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	started := 0
	for _, w := range s.workers {
		if !w.Enabled() {
			s.log.Infow("Skipping disabled worker", "worker", w.Name())
			continue
		}
		s.wg.Add(1)
		go s.runWorker(runCtx, w)
		started++
	}

	s.log.Infow("Worker scheduler started", "workers", started)
	return nil
}

// Stop cancels all workers and waits for in-flight runs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	s.log.Info("Stopping worker scheduler...")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		s.log.Info("All workers stopped gracefully")
	case <-ctx.Done():
		s.log.Warn("Worker shutdown timed out")
		err = errors.Wrap(errors.ErrTimeout, "worker shutdown")
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return err
}

func (s *Scheduler) runWorker(ctx context.Context, w Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	s.execute(ctx, w)

	for {
		select {
		case <-ctx.Done():
			s.log.Debugw("Worker stopping", "worker", w.Name())
			return
		case <-ticker.C:
			s.execute(ctx, w)
		}
	}
}

// execute runs one iteration. A panic counts as a failed run
func (s *Scheduler) execute(ctx context.Context, w Worker) {
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "worker panic: %v", r)
			s.log.Errorw("Worker panicked", "worker", w.Name(), "panic", fmt.Sprint(r))
		}

		elapsed := time.Since(start)
		metrics.RecordWorkerExecution(w.Name(), elapsed, err)
		if hr, ok := w.(HealthRecorder); ok {
			if err != nil {
				hr.RecordError(err, elapsed)
			} else {
				hr.RecordRun(elapsed)
			}
		}
	}()

	err = w.Run(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Errorw("Worker execution failed",
			"worker", w.Name(),
			"error", err,
			"duration", time.Since(start),
		)
	}
}

// Workers returns a copy of the registered workers
func (s *Scheduler) Workers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Worker, len(s.workers))
	copy(out, s.workers)
	return out
}

// IsRunning reports whether the scheduler is started
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
