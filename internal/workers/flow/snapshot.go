package flow

import (
	"context"
	"strings"
	"time"

	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/internal/domain/dealer"
	"optix/internal/flow/aggregator"
	"optix/internal/workers"
	"optix/pkg/errors"
)

// Cache key layout read by dashboards
const (
	SummaryKeyPrefix  = "optix:flow:summary:"
	PositionKeyPrefix = "optix:flow:position:"
	ActiveAlertsKey   = "optix:alerts:active"
	GlobalSummaryKey  = "optix:flow:global"
)

// SnapshotSource is the read side of the flow engine
type SnapshotSource interface {
	Symbols() []string
	OrderFlowSummary(symbol string) aggregator.Summary
	GlobalSummary() aggregator.GlobalSummary
	LatestPosition(symbol string) (dealer.Position, bool)
	ActiveAlerts(f alerts.Filter) []alert.Alert
}

// Cache stores JSON values with a TTL
type Cache interface {
	SetMany(ctx context.Context, values map[string]interface{}, ttl time.Duration) error
}

// SnapshotPublisher mirrors engine state into the cache on every run
type SnapshotPublisher struct {
	*workers.BaseWorker
	source SnapshotSource
	cache  Cache
	ttl    time.Duration
}

// NewSnapshotPublisher creates a new snapshot publisher
func NewSnapshotPublisher(source SnapshotSource, cache Cache, ttl, interval time.Duration, enabled bool) *SnapshotPublisher {
	return &SnapshotPublisher{
		BaseWorker: workers.NewBaseWorker("flow_snapshot", interval, enabled),
		source:     source,
		cache:      cache,
		ttl:        ttl,
	}
}

// SummaryKey returns the cache key for a symbol summary
func SummaryKey(symbol string) string {
	return SummaryKeyPrefix + strings.ToUpper(symbol)
}

// PositionKey returns the cache key for a symbol's latest dealer position
func PositionKey(symbol string) string {
	return PositionKeyPrefix + strings.ToUpper(symbol)
}

// Run writes one snapshot of every tracked symbol
func (w *SnapshotPublisher) Run(ctx context.Context) error {
	values := w.collect()
	if err := w.cache.SetMany(ctx, values, w.ttl); err != nil {
		return errors.Wrap(err, "publish flow snapshot")
	}

	w.Log().Debugw("Flow snapshot published", "keys", len(values))
	return nil
}

func (w *SnapshotPublisher) collect() map[string]interface{} {
	symbols := w.source.Symbols()
	values := make(map[string]interface{}, 2*len(symbols)+2)

	for _, s := range symbols {
		values[SummaryKey(s)] = w.source.OrderFlowSummary(s)
		if pos, ok := w.source.LatestPosition(s); ok {
			values[PositionKey(s)] = pos
		}
	}

	active := w.source.ActiveAlerts(alerts.Filter{})
	if active == nil {
		active = []alert.Alert{}
	}
	values[ActiveAlertsKey] = active
	values[GlobalSummaryKey] = w.source.GlobalSummary()

	return values
}
