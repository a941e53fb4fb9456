package bootstrap

import (
	"context"
	"sync"
	"time"

	"optix/pkg/errors"
	"optix/pkg/logger"
)

// Lifecycle runs the ordered shutdown
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a lifecycle manager with an overall shutdown budget
func NewLifecycle(timeout time.Duration) *Lifecycle {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Lifecycle{shutdownTimeout: timeout}
}

// Shutdown stops components in this order:
// 1. HTTP server stops accepting probes
// 2. trade consumer stops feeding the engine
// 3. workers finish their current run
// 4. dispatcher drains queued alerts
// 5. history writers flush to ClickHouse
// 6. Kafka producer closes after the last alert publish
// 7. storage clients close
// 8. error tracker and logs flush
func (l *Lifecycle) Shutdown(c *Container) {
	log := c.Log
	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()

	log.Info("[1/8] Stopping HTTP server...")
	if c.Application.HTTPServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := c.Application.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	// Cancelling the root context unblocks the consumer's ReadMessage and the worker tickers
	log.Info("[2/8] Stopping trade consumer...")
	c.Cancel()
	l.waitForGoroutines(c.WG, 10*time.Second, log)

	log.Info("[3/8] Stopping background workers...")
	if s := c.Background.WorkerScheduler; s != nil && s.IsRunning() {
		wCtx, wCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := s.Stop(wCtx); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("Workers stopped")
		}
		wCancel()
	}

	log.Info("[4/8] Draining alert dispatcher...")
	if c.Flow.detach != nil {
		c.Flow.detach()
	}
	if d := c.Flow.Dispatcher; d != nil {
		dCtx, dCancel := context.WithTimeout(shutdownCtx, 15*time.Second)
		if err := d.Stop(dCtx); err != nil {
			log.Errorw("Dispatcher drain incomplete", "error", err, "queued", d.QueueDepth())
		} else {
			log.Info("Dispatcher drained")
		}
		dCancel()
	}

	log.Info("[5/8] Flushing flow history...")
	if h := c.Flow.History; h != nil {
		if err := h.Stop(shutdownCtx); err != nil {
			log.Errorw("History flush failed", "error", err)
		}
	}

	log.Info("[6/8] Closing Kafka producer...")
	if c.KafkaProducer != nil {
		if err := c.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		}
	}

	log.Info("[7/8] Closing storage clients...")
	l.closeStores(c, log)

	log.Info("[8/8] Flushing error tracker and logs...")
	l.flushErrorTracker(shutdownCtx, c.ErrorTracker, log)
	_ = logger.Sync()

	log.Info("Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Warnw("Error tracker flush failed", "error", err)
	}
}

func (l *Lifecycle) closeStores(c *Container, log *logger.Logger) {
	var merr errors.MultiError

	if c.CH != nil {
		if err := c.CH.Close(); err != nil {
			merr.Add(errors.Wrap(err, "clickhouse"))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			merr.Add(errors.Wrap(err, "redis"))
		}
	}

	if merr.HasErrors() {
		log.Errorw("Storage close errors", "error", merr.ToError())
	}
}
