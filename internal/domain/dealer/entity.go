package dealer

import "time"

// Bias is the estimated gamma stance of liquidity providers
type Bias string

const (
	ShortGamma  Bias = "short_gamma"
	LongGamma   Bias = "long_gamma"
	NeutralBias Bias = "neutral"
)

// HedgePressure is the direction dealers would trade the underlying to flatten delta
type HedgePressure string

const (
	PressureBuy     HedgePressure = "buy"
	PressureSell    HedgePressure = "sell"
	PressureNeutral HedgePressure = "neutral"
)

// Position is an estimate of aggregate dealer Greeks inferred from customer prints.
// It is not a view of any real book.
type Position struct {
	Symbol        string        `json:"symbol"`
	NetDelta      float64       `json:"net_delta"` // share equivalents
	NetGamma      float64       `json:"net_gamma"` // delta change per $1 underlying move
	NetVega       float64       `json:"net_vega"`  // $ per vol point
	NetTheta      float64       `json:"net_theta"` // $ per day
	PositionBias  Bias          `json:"position_bias"`
	HedgePressure HedgePressure `json:"hedge_pressure"`
	TradeCount    int           `json:"trade_count"`
	SkippedTrades int           `json:"skipped_trades"` // mid fills with no inferable side
	Lookback      time.Duration `json:"lookback"`
	EstimatedAt   time.Time     `json:"estimated_at"`
}

// Neutral returns an empty estimate for a symbol with no flow
func Neutral(symbol string) Position {
	return Position{
		Symbol:        symbol,
		PositionBias:  NeutralBias,
		HedgePressure: PressureNeutral,
	}
}
