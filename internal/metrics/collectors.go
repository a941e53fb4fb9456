package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StateSource exposes point-in-time pipeline state for scraping
type StateSource interface {
	TrackedSymbols() int
	AlertCounts() map[string]int // by state
	QueueDepth() int
}

// StateCollector turns engine state into gauges on every scrape
type StateCollector struct {
	source StateSource

	symbols    *prometheus.Desc
	alerts     *prometheus.Desc
	queueDepth *prometheus.Desc
}

// NewStateCollector creates a collector reading from source
func NewStateCollector(source StateSource) *StateCollector {
	return &StateCollector{
		source: source,
		symbols: prometheus.NewDesc(
			"optix_tracked_symbols",
			"Symbols with a processing lane",
			nil, nil,
		),
		alerts: prometheus.NewDesc(
			"optix_alerts_current",
			"Alerts held by the manager by state",
			[]string{"state"}, nil,
		),
		queueDepth: prometheus.NewDesc(
			"optix_dispatch_queue_depth",
			"Alerts waiting for delivery",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.symbols
	ch <- c.alerts
	ch <- c.queueDepth
}

// Collect implements prometheus.Collector
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.symbols, prometheus.GaugeValue, float64(c.source.TrackedSymbols()))
	for state, n := range c.source.AlertCounts() {
		ch <- prometheus.MustNewConstMetric(c.alerts, prometheus.GaugeValue, float64(n), state)
	}
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(c.source.QueueDepth()))
}

// RegisterState registers a StateCollector over source with the default registry
func RegisterState(source StateSource) error {
	return prometheus.Register(NewStateCollector(source))
}
