package engine

import (
	"time"

	"optix/internal/flow/aggregator"
	"optix/internal/flow/analysis"
	"optix/internal/flow/detectors"
)

// Config wires every stage of the pipeline
type Config struct {
	// Analysis cadence: whichever comes first, counted per symbol lane
	EvaluateEvery    int           `envconfig:"EVALUATE_EVERY" default:"5"`
	EvaluateInterval time.Duration `envconfig:"EVALUATE_INTERVAL" default:"60s"` // trade time

	// HistoryWindow bounds the per-symbol trade window kept for analysis and dealer queries
	HistoryWindow time.Duration `envconfig:"HISTORY_WINDOW" default:"60m"`
	MaxHistory    int           `envconfig:"MAX_HISTORY" default:"20000"`
	RecentIDs     int           `envconfig:"RECENT_IDS" default:"4096"` // duplicate suppression ring per lane

	Sweep      detectors.SweepConfig
	Block      detectors.BlockConfig
	DarkPool   detectors.DarkPoolConfig
	Flow       analysis.FlowConfig
	Dealer     analysis.DealerConfig
	Aggregator aggregator.Config
}

// DefaultConfig returns production defaults for every stage
func DefaultConfig() Config {
	return Config{
		EvaluateEvery:    5,
		EvaluateInterval: time.Minute,
		HistoryWindow:    time.Hour,
		MaxHistory:       20_000,
		RecentIDs:        4096,
		Sweep:            detectors.DefaultSweepConfig(),
		Block:            detectors.DefaultBlockConfig(),
		DarkPool:         detectors.DefaultDarkPoolConfig(),
		Flow:             analysis.DefaultFlowConfig(),
		Dealer:           analysis.DefaultDealerConfig(),
		Aggregator:       aggregator.DefaultConfig(),
	}
}
