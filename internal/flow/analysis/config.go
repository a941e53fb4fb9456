package analysis

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlowConfig tunes pattern recognition over the analysis window
type FlowConfig struct {
	Window time.Duration `envconfig:"WINDOW" default:"15m"`

	MinAggressiveRun    int     `envconfig:"MIN_AGGRESSIVE_RUN" default:"10"`
	MinDirectionalShare float64 `envconfig:"MIN_DIRECTIONAL_SHARE" default:"0.7"`

	InstitutionalMinPremium decimal.Decimal `envconfig:"INSTITUTIONAL_MIN_PREMIUM" default:"100000"`
	InstitutionalMinTrades  int             `envconfig:"INSTITUTIONAL_MIN_TRADES" default:"3"`
	BurstGap                time.Duration   `envconfig:"BURST_GAP" default:"60s"`
	InstitutionalMinScore   float64         `envconfig:"INSTITUTIONAL_MIN_SCORE" default:"0.5"`

	SpreadMaxGap   time.Duration `envconfig:"SPREAD_MAX_GAP" default:"1s"`
	SpreadMinLegs  int           `envconfig:"SPREAD_MIN_LEGS" default:"2"`
	SpreadMinShare float64       `envconfig:"SPREAD_MIN_SHARE" default:"0.2"`

	VolumeBucket time.Duration `envconfig:"VOLUME_BUCKET" default:"1m"`
	MinBuckets   int           `envconfig:"MIN_BUCKETS" default:"10"`
	VolumeZScore float64       `envconfig:"VOLUME_ZSCORE" default:"3"`
}

// DefaultFlowConfig returns production defaults
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		Window:                  15 * time.Minute,
		MinAggressiveRun:        10,
		MinDirectionalShare:     0.7,
		InstitutionalMinPremium: decimal.NewFromInt(100_000),
		InstitutionalMinTrades:  3,
		BurstGap:                time.Minute,
		InstitutionalMinScore:   0.5,
		SpreadMaxGap:            time.Second,
		SpreadMinLegs:           2,
		SpreadMinShare:          0.2,
		VolumeBucket:            time.Minute,
		MinBuckets:              10,
		VolumeZScore:            3,
	}
}

// DealerConfig tunes the dealer Greeks estimate
type DealerConfig struct {
	DefaultIV        float64       `envconfig:"DEFAULT_IV" default:"0.3"`
	MinTimeToExpiry  time.Duration `envconfig:"MIN_TIME_TO_EXPIRY" default:"24h"`
	GammaNeutralBand float64       `envconfig:"GAMMA_NEUTRAL_BAND" default:"0"`
	DeltaNeutralBand float64       `envconfig:"DELTA_NEUTRAL_BAND" default:"0"`
}

// DefaultDealerConfig returns production defaults
func DefaultDealerConfig() DealerConfig {
	return DealerConfig{
		DefaultIV:       0.3,
		MinTimeToExpiry: 24 * time.Hour,
	}
}
