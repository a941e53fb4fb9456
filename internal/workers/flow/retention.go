package flow

import (
	"context"
	"time"

	"optix/internal/workers"
)

// AlertRetention is the lifecycle surface of the alert manager
type AlertRetention interface {
	ExpireStale(now time.Time) int
	Prune(now time.Time) int
}

// RetentionWorker deactivates stale alerts and drops expired inactive ones
type RetentionWorker struct {
	*workers.BaseWorker
	alerts AlertRetention
	now    func() time.Time
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(alerts AlertRetention, interval time.Duration, enabled bool) *RetentionWorker {
	return &RetentionWorker{
		BaseWorker: workers.NewBaseWorker("alert_retention", interval, enabled),
		alerts:     alerts,
		now:        time.Now,
	}
}

// Run executes one retention pass
func (w *RetentionWorker) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := w.now()
	expired := w.alerts.ExpireStale(now)
	pruned := w.alerts.Prune(now)

	if expired > 0 || pruned > 0 {
		w.Log().Infow("Alert retention pass",
			"expired", expired,
			"pruned", pruned,
		)
	}
	return nil
}
