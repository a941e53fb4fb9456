package clickhouse

import (
	"context"
	"encoding/json"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"optix/internal/domain/alert"
	"optix/internal/domain/detection"
	"optix/internal/domain/pattern"
	"optix/pkg/errors"
)

// FlowRepository implements the detection, pattern and alert repositories for ClickHouse
type FlowRepository struct {
	conn driver.Conn
}

// NewFlowRepository creates a flow history repository
func NewFlowRepository(conn driver.Conn) *FlowRepository {
	return &FlowRepository{conn: conn}
}

// InsertDetections writes detections as one batch
func (r *FlowRepository) InsertDetections(ctx context.Context, detections []detection.Detection) error {
	if len(detections) == 0 {
		return nil
	}
	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO flow_detections (
			detected_at, symbol, type, confidence, direction,
			total_premium, total_size, trade_ids, metadata
		)`)
	if err != nil {
		return errors.Wrap(err, "prepare detections batch")
	}

	for _, d := range detections {
		if err := batch.Append(
			d.DetectedAt,
			d.Symbol,
			string(d.Type),
			d.Confidence,
			string(d.Direction),
			d.TotalPremium,
			d.TotalSize,
			d.TradeIDs(),
			encodeMetadata(d.Metadata),
		); err != nil {
			return errors.Wrap(err, "append detection")
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "insert detections")
	}
	return nil
}

// InsertPatterns writes analysis passes as one batch
func (r *FlowRepository) InsertPatterns(ctx context.Context, patterns []pattern.FlowPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO flow_patterns (
			window_end, window_start, symbol, type, net_sentiment,
			score, confidence, total_premium, trade_count, metadata
		)`)
	if err != nil {
		return errors.Wrap(err, "prepare patterns batch")
	}

	for _, p := range patterns {
		if err := batch.Append(
			p.WindowEnd,
			p.WindowStart,
			p.Symbol,
			string(p.Type),
			p.NetSentiment,
			p.Score,
			p.Confidence,
			p.TotalPremium,
			uint32(p.TradeCount),
			encodeMetadata(p.Metadata),
		); err != nil {
			return errors.Wrap(err, "append pattern")
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "insert patterns")
	}
	return nil
}

// InsertAlerts writes alert versions; the table keeps the latest per alert id
func (r *FlowRepository) InsertAlerts(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO flow_alerts (
			updated_at, created_at, alert_id, symbol, type, severity, state,
			title, premium, confidence, occurrences, trade_ids
		)`)
	if err != nil {
		return errors.Wrap(err, "prepare alerts batch")
	}

	for _, a := range alerts {
		if err := batch.Append(
			a.UpdatedAt,
			a.CreatedAt,
			a.ID,
			a.Symbol,
			string(a.Type),
			a.Severity.String(),
			string(a.State),
			a.Title,
			a.Premium,
			a.Confidence,
			uint32(a.Occurrences),
			a.TradeIDs,
		); err != nil {
			return errors.Wrap(err, "append alert")
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "insert alerts")
	}
	return nil
}

func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}
