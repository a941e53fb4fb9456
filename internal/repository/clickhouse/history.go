package clickhouse

import (
	"context"
	"time"

	"optix/internal/domain/alert"
	"optix/internal/domain/detection"
	"optix/internal/domain/pattern"
	"optix/internal/metrics"
	batch "optix/pkg/clickhouse"
	"optix/pkg/errors"
)

// HistoryConfig sizes the history batch writers
type HistoryConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// History buffers pipeline output and writes it to the flow tables in the background
type History struct {
	detections *batch.BatchWriter[detection.Detection]
	patterns   *batch.BatchWriter[pattern.FlowPattern]
	alerts     *batch.BatchWriter[alert.Alert]
}

// NewHistory creates a history sink over the given repositories
func NewHistory(cfg HistoryConfig, dr detection.Repository, pr pattern.Repository, ar alert.Repository) *History {
	return &History{
		detections: batch.NewBatchWriter(batch.BatchWriterConfig[detection.Detection]{
			FlushFunc:    recorded("flow_detections", dr.InsertDetections),
			TableName:    "flow_detections",
			MaxBatchSize: cfg.BatchSize,
			MaxAge:       cfg.FlushInterval,
		}),
		patterns: batch.NewBatchWriter(batch.BatchWriterConfig[pattern.FlowPattern]{
			FlushFunc:    recorded("flow_patterns", pr.InsertPatterns),
			TableName:    "flow_patterns",
			MaxBatchSize: cfg.BatchSize,
			MaxAge:       cfg.FlushInterval,
		}),
		alerts: batch.NewBatchWriter(batch.BatchWriterConfig[alert.Alert]{
			FlushFunc:    recorded("flow_alerts", ar.InsertAlerts),
			TableName:    "flow_alerts",
			MaxBatchSize: cfg.BatchSize,
			MaxAge:       cfg.FlushInterval,
		}),
	}
}

func recorded[T any](table string, insert func(context.Context, []T) error) batch.FlushFunc[T] {
	return func(ctx context.Context, rows []T) error {
		err := insert(ctx, rows)
		metrics.RecordHistoryRows(table, len(rows), err)
		return err
	}
}

func (h *History) RecordDetections(d []detection.Detection) { h.detections.Add(d...) }

func (h *History) RecordPatterns(p []pattern.FlowPattern) { h.patterns.Add(p...) }

func (h *History) RecordAlerts(a []alert.Alert) { h.alerts.Add(a...) }

// Start launches the background flush loops
func (h *History) Start(ctx context.Context) {
	h.detections.Start(ctx)
	h.patterns.Start(ctx)
	h.alerts.Start(ctx)
}

// Stop flushes every writer
func (h *History) Stop(ctx context.Context) error {
	var merr errors.MultiError
	merr.Add(h.detections.Stop(ctx))
	merr.Add(h.patterns.Stop(ctx))
	merr.Add(h.alerts.Stop(ctx))
	return merr.ToError()
}

// Flush writes everything buffered now
func (h *History) Flush(ctx context.Context) error {
	var merr errors.MultiError
	merr.Add(h.detections.Flush(ctx))
	merr.Add(h.patterns.Flush(ctx))
	merr.Add(h.alerts.Flush(ctx))
	return merr.ToError()
}
