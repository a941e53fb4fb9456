package bootstrap

import (
	"optix/internal/workers"
	flowworkers "optix/internal/workers/flow"
)

// provideScheduler registers the housekeeping workers
func provideScheduler(c *Container) *workers.Scheduler {
	cfg := c.Config.Workers
	s := workers.NewScheduler()

	s.RegisterWorker(flowworkers.NewRetentionWorker(
		c.Flow.Alerts,
		cfg.RetentionInterval,
		true,
	))

	// Disabled without Redis
	var cache flowworkers.Cache
	if c.Redis != nil {
		cache = c.Redis
	}
	s.RegisterWorker(flowworkers.NewSnapshotPublisher(
		c.Flow.Engine,
		cache,
		c.Config.Redis.SnapshotTTL,
		cfg.SnapshotInterval,
		cache != nil,
	))

	return s
}
