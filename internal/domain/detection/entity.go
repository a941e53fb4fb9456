package detection

import (
	"time"

	"github.com/shopspring/decimal"

	"optix/internal/domain/trade"
)

// Type is the closed set of single-trade detectors
type Type string

const (
	TypeSweep    Type = "sweep"
	TypeBlock    Type = "block"
	TypeDarkPool Type = "dark_pool"
)

// Types lists every detection type in evaluation order
var Types = []Type{TypeSweep, TypeBlock, TypeDarkPool}

// Detection is a detector hit. Derived per call and never mutated afterwards
type Detection struct {
	Type         Type            `json:"type"`
	Symbol       string          `json:"symbol"`
	Confidence   float64         `json:"confidence"` // 0..1
	Trades       []trade.Trade   `json:"contributing_trades"`
	DetectedAt   time.Time       `json:"detected_at"`
	TotalPremium decimal.Decimal `json:"total_premium"`
	TotalSize    int64           `json:"total_size"`
	Direction    trade.Direction `json:"direction"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

// New builds a detection over contributing trades, which must be time ordered
func New(typ Type, confidence float64, trades []trade.Trade, direction trade.Direction) *Detection {
	d := &Detection{
		Type:         typ,
		Confidence:   confidence,
		Trades:       trades,
		TotalPremium: trade.Premiums(trades),
		Direction:    direction,
		Metadata:     map[string]any{},
	}
	if n := len(trades); n > 0 {
		d.Symbol = trades[n-1].Symbol
		d.DetectedAt = trades[n-1].Timestamp
	}
	for _, t := range trades {
		d.TotalSize += t.Size
	}
	return d
}

// TradeIDs returns the contributing trade ids in order
func (d *Detection) TradeIDs() []string {
	return trade.IDs(d.Trades)
}
