package clickhouse

// Migrations create the flow history tables. Rows are append-only projections
// of in-memory state; TTL keeps them bounded.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS flow_detections (
		detected_at   DateTime64(3, 'UTC'),
		symbol        LowCardinality(String),
		type          LowCardinality(String),
		confidence    Float64,
		direction     LowCardinality(String),
		total_premium Decimal(20, 2),
		total_size    Int64,
		trade_ids     Array(String),
		metadata      String
	) ENGINE = MergeTree
	PARTITION BY toYYYYMMDD(detected_at)
	ORDER BY (symbol, detected_at)
	TTL toDateTime(detected_at) + INTERVAL 30 DAY`,

	`CREATE TABLE IF NOT EXISTS flow_patterns (
		window_end    DateTime64(3, 'UTC'),
		window_start  DateTime64(3, 'UTC'),
		symbol        LowCardinality(String),
		type          LowCardinality(String),
		net_sentiment Float64,
		score         Float64,
		confidence    Float64,
		total_premium Decimal(20, 2),
		trade_count   UInt32,
		metadata      String
	) ENGINE = MergeTree
	PARTITION BY toYYYYMMDD(window_end)
	ORDER BY (symbol, window_end)
	TTL toDateTime(window_end) + INTERVAL 30 DAY`,

	`CREATE TABLE IF NOT EXISTS flow_alerts (
		updated_at    DateTime64(3, 'UTC'),
		created_at    DateTime64(3, 'UTC'),
		alert_id      String,
		symbol        LowCardinality(String),
		type          LowCardinality(String),
		severity      LowCardinality(String),
		state         LowCardinality(String),
		title         String,
		premium       Decimal(20, 2),
		confidence    Float64,
		occurrences   UInt32,
		trade_ids     Array(String)
	) ENGINE = ReplacingMergeTree(updated_at)
	PARTITION BY toYYYYMMDD(created_at)
	ORDER BY (symbol, alert_id)
	TTL toDateTime(created_at) + INTERVAL 90 DAY`,
}
