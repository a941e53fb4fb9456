package trade

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ContractMultiplier is the number of underlying shares per equity option contract
const ContractMultiplier = 100

// Trade is a single options execution as delivered by the feed. Never mutated after creation.
type Trade struct {
	ID             string          `json:"trade_id"`
	Symbol         string          `json:"underlying_symbol"`
	OptionType     OptionType      `json:"option_type"`
	Strike         decimal.Decimal `json:"strike"`
	Expiration     time.Time       `json:"expiration"`
	Premium        decimal.Decimal `json:"premium"` // total USD premium
	Size           int64           `json:"size"`    // contracts
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	Timestamp      time.Time       `json:"timestamp"`
	Exchange       string          `json:"exchange"`
	ExecutionSide  Side            `json:"execution_side"`
	IsAggressive   bool            `json:"is_aggressive"`

	// Optional enrichment from the feed
	ReportedAt      time.Time       `json:"reported_at,omitempty"` // print publication time, zero when real-time
	UnderlyingPrice decimal.Decimal `json:"underlying_price,omitempty"`
	ImpliedVol      float64         `json:"implied_vol,omitempty"`
}

// OptionType defines call or put
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Valid reports whether the option type is known
func (o OptionType) Valid() bool {
	return o == Call || o == Put
}

// Side is where the print executed relative to the quote
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
	SideMid Side = "mid"
)

// Valid reports whether the side is known
func (s Side) Valid() bool {
	return s == SideBid || s == SideAsk || s == SideMid
}

// Direction is the inferred customer direction of a print
type Direction string

const (
	Buy     Direction = "buy"
	Sell    Direction = "sell"
	Neutral Direction = "neutral"
)

// Sign returns +1 for buys, -1 for sells, 0 otherwise
func (d Direction) Sign() int {
	switch d {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

// Normalize canonicalizes casing of enum and symbol fields. Feed payloads are not consistent about it
func (t Trade) Normalize() Trade {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.Exchange = strings.ToUpper(strings.TrimSpace(t.Exchange))
	t.OptionType = OptionType(strings.ToLower(string(t.OptionType)))
	t.ExecutionSide = Side(strings.ToLower(string(t.ExecutionSide)))
	return t
}

// Direction infers the customer side: lifting the ask is a buy, hitting the bid a sell
func (t Trade) Direction() Direction {
	switch t.ExecutionSide {
	case SideAsk:
		return Buy
	case SideBid:
		return Sell
	default:
		return Neutral
	}
}

// SignedPremium is positive for bullish flow (call buys, put sells) and negative for bearish flow
func (t Trade) SignedPremium() decimal.Decimal {
	sign := int64(t.Direction().Sign())
	if t.OptionType == Put {
		sign = -sign
	}
	return t.Premium.Mul(decimal.NewFromInt(sign))
}

// DelayedBy returns how late the print was reported, zero when unknown
func (t Trade) DelayedBy() time.Duration {
	if t.ReportedAt.IsZero() || t.ReportedAt.Before(t.Timestamp) {
		return 0
	}
	return t.ReportedAt.Sub(t.Timestamp)
}

// Spot returns the underlying price, falling back to the strike when the feed omits it
func (t Trade) Spot() decimal.Decimal {
	if t.UnderlyingPrice.IsPositive() {
		return t.UnderlyingPrice
	}
	return t.Strike
}

// LegKey identifies the contract leg (strike, expiration, type)
func (t Trade) LegKey() string {
	return t.Strike.String() + "|" + t.Expiration.Format("2006-01-02") + "|" + string(t.OptionType)
}

// Premiums sums premium over trades
func Premiums(trades []Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Premium)
	}
	return total
}

// IDs returns the trade ids in order
func IDs(trades []Trade) []string {
	ids := make([]string, len(trades))
	for i, t := range trades {
		ids[i] = t.ID
	}
	return ids
}
