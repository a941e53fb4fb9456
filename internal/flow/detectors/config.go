package detectors

import (
	"time"

	"github.com/shopspring/decimal"
)

// SweepConfig tunes multi-exchange sweep detection
type SweepConfig struct {
	MaxTimeWindow      time.Duration   `envconfig:"MAX_TIME_WINDOW" default:"2s"`
	BufferLookback     time.Duration   `envconfig:"BUFFER_LOOKBACK" default:"10s"`
	MaxBufferSize      int             `envconfig:"MAX_BUFFER_SIZE" default:"512"`
	MinLegs            int             `envconfig:"MIN_LEGS" default:"4"`
	MinExchanges       int             `envconfig:"MIN_EXCHANGES" default:"2"`
	MinPremiumPerLeg   decimal.Decimal `envconfig:"MIN_PREMIUM_PER_LEG" default:"10000"`
	ExchangeSaturation int             `envconfig:"EXCHANGE_SATURATION" default:"4"` // distinct venues scoring 1.0

	// Confidence weights, normalized by their sum
	WeightExchanges  float64 `envconfig:"WEIGHT_EXCHANGES" default:"0.4"`
	WeightTightness  float64 `envconfig:"WEIGHT_TIGHTNESS" default:"0.3"`
	WeightAggressive float64 `envconfig:"WEIGHT_AGGRESSIVE" default:"0.3"`
}

// DefaultSweepConfig returns production defaults
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		MaxTimeWindow:      2 * time.Second,
		BufferLookback:     10 * time.Second,
		MaxBufferSize:      512,
		MinLegs:            4,
		MinExchanges:       2,
		MinPremiumPerLeg:   decimal.NewFromInt(10_000),
		ExchangeSaturation: 4,
		WeightExchanges:    0.4,
		WeightTightness:    0.3,
		WeightAggressive:   0.3,
	}
}

// BlockConfig tunes single large print detection
type BlockConfig struct {
	MinContracts      int64           `envconfig:"MIN_CONTRACTS" default:"100"`
	MinPremium        decimal.Decimal `envconfig:"MIN_PREMIUM" default:"100000"`
	SizePercentile    float64         `envconfig:"SIZE_PERCENTILE" default:"95"`
	SampleSize        int             `envconfig:"SAMPLE_SIZE" default:"500"`
	MinSamples        int             `envconfig:"MIN_SAMPLES" default:"20"` // below this the percentile gate is skipped
	BaseConfidence    float64         `envconfig:"BASE_CONFIDENCE" default:"0.5"`
	SizeWeight        float64         `envconfig:"SIZE_WEIGHT" default:"0.2"`
	PremiumWeight     float64         `envconfig:"PREMIUM_WEIGHT" default:"0.15"`
	MidPriceBonus     float64         `envconfig:"MID_PRICE_BONUS" default:"0.15"`
	SizeSaturation    float64         `envconfig:"SIZE_SATURATION" default:"5"`    // multiple of MinContracts scoring 1.0
	PremiumSaturation float64         `envconfig:"PREMIUM_SATURATION" default:"10"` // multiple of MinPremium scoring 1.0
}

// DefaultBlockConfig returns production defaults
func DefaultBlockConfig() BlockConfig {
	return BlockConfig{
		MinContracts:      100,
		MinPremium:        decimal.NewFromInt(100_000),
		SizePercentile:    95,
		SampleSize:        500,
		MinSamples:        20,
		BaseConfidence:    0.5,
		SizeWeight:        0.2,
		PremiumWeight:     0.15,
		MidPriceBonus:     0.15,
		SizeSaturation:    5,
		PremiumSaturation: 10,
	}
}

// DefaultDarkPoolVenues are off-exchange and trade-reporting venue codes
var DefaultDarkPoolVenues = []string{
	"DARK", "ADF", "FINRA_ADF", "TRF", "NYSE_TRF", "NASDAQ_TRF", "ATS",
	"SIGMA_X", "CROSSFINDER", "MS_POOL", "UBS_ATS", "LEVEL_ATS", "IEX_DARK",
}

// DarkPoolConfig tunes off-exchange and delayed print detection
type DarkPoolConfig struct {
	Venues                []string        `envconfig:"VENUES" default:"DARK,ADF,FINRA_ADF,TRF,NYSE_TRF,NASDAQ_TRF,ATS,SIGMA_X,CROSSFINDER,MS_POOL,UBS_ATS,LEVEL_ATS,IEX_DARK"`
	DelayedPrintThreshold time.Duration   `envconfig:"DELAYED_PRINT_THRESHOLD" default:"30s"`
	MinContracts          int64           `envconfig:"MIN_CONTRACTS" default:"50"`
	MinPremium            decimal.Decimal `envconfig:"MIN_PREMIUM" default:"50000"`
	VolumeWindow          time.Duration   `envconfig:"VOLUME_WINDOW" default:"60m"`
	VenueConfidence       float64         `envconfig:"VENUE_CONFIDENCE" default:"0.7"`
	DelayConfidence       float64         `envconfig:"DELAY_CONFIDENCE" default:"0.55"`
	BothBonus             float64         `envconfig:"BOTH_BONUS" default:"0.15"`
	SizeBonus             float64         `envconfig:"SIZE_BONUS" default:"0.15"`
	SizeSaturation        float64         `envconfig:"SIZE_SATURATION" default:"10"` // multiple of MinPremium earning the full size bonus
}

// DefaultDarkPoolConfig returns production defaults
func DefaultDarkPoolConfig() DarkPoolConfig {
	return DarkPoolConfig{
		Venues:                append([]string(nil), DefaultDarkPoolVenues...),
		DelayedPrintThreshold: 30 * time.Second,
		MinContracts:          50,
		MinPremium:            decimal.NewFromInt(50_000),
		VolumeWindow:          time.Hour,
		VenueConfidence:       0.7,
		DelayConfidence:       0.55,
		BothBonus:             0.15,
		SizeBonus:             0.15,
		SizeSaturation:        10,
	}
}
