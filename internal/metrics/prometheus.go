package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	TradesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_trades_processed_total",
			Help: "Trades handled by the flow engine",
		},
		[]string{"status"}, // status: ok|invalid|duplicate
	)

	TradeProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optix_trade_processing_duration_seconds",
			Help:    "Time spent in process_trade",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		},
	)

	Detections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_detections_total",
			Help: "Detections emitted by type",
		},
		[]string{"type"},
	)

	DetectorPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_detector_panics_total",
			Help: "Detector or analyzer panics recovered as no detection",
		},
		[]string{"stage"},
	)

	Patterns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_patterns_total",
			Help: "Significant flow patterns by type",
		},
		[]string{"type"},
	)

	// Alert metrics
	Alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_alerts_total",
			Help: "Alert manager outcomes",
		},
		[]string{"type", "severity", "outcome"}, // outcome: created|merged
	)

	AlertTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_alert_transitions_total",
			Help: "Alert lifecycle transitions",
		},
		[]string{"state"},
	)

	AlertDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_alert_deliveries_total",
			Help: "Alert deliveries by channel",
		},
		[]string{"channel", "status"}, // status: success|error
	)

	AlertDeliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optix_alert_delivery_latency_seconds",
			Help:    "Alert delivery latency per channel",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"channel"},
	)

	DispatchDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "optix_dispatch_queue_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full",
		},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "optix_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "optix_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Adapter metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_kafka_messages_total",
			Help: "Kafka messages consumed and produced",
		},
		[]string{"topic", "direction", "status"}, // direction: in|out
	)

	HistoryRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optix_history_rows_total",
			Help: "Rows written to ClickHouse history tables",
		},
		[]string{"table", "status"},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			TradesProcessed,
			TradeProcessingDuration,
			Detections,
			DetectorPanics,
			Patterns,
			Alerts,
			AlertTransitions,
			AlertDeliveries,
			AlertDeliveryLatency,
			DispatchDropped,
			WorkerExecutions,
			WorkerDuration,
			WorkerLastRun,
			KafkaMessages,
			HistoryRows,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordTrade records one process_trade call
func RecordTrade(outcome string, duration time.Duration) {
	TradesProcessed.WithLabelValues(outcome).Inc()
	TradeProcessingDuration.Observe(duration.Seconds())
}

// RecordDetection counts a detector hit
func RecordDetection(typ string) {
	Detections.WithLabelValues(typ).Inc()
}

// RecordPattern counts a significant pattern
func RecordPattern(typ string) {
	Patterns.WithLabelValues(typ).Inc()
}

// RecordAlert counts an alert creation or merge
func RecordAlert(typ, severity string, created bool) {
	outcome := "merged"
	if created {
		outcome = "created"
	}
	Alerts.WithLabelValues(typ, severity, outcome).Inc()
}

// RecordDelivery records a channel delivery attempt
func RecordDelivery(channel string, latency time.Duration, err error) {
	AlertDeliveries.WithLabelValues(channel, status(err)).Inc()
	AlertDeliveryLatency.WithLabelValues(channel).Observe(latency.Seconds())
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordKafkaMessage counts a consumed (in) or produced (out) message
func RecordKafkaMessage(topic, direction string, err error) {
	KafkaMessages.WithLabelValues(topic, direction, status(err)).Inc()
}

// RecordHistoryRows counts rows flushed to a history table
func RecordHistoryRows(table string, rows int, err error) {
	HistoryRows.WithLabelValues(table, status(err)).Add(float64(rows))
}
