package pattern

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type classifies aggregate flow behaviour over an analysis window
type Type string

const (
	TypeAggressiveBuying  Type = "aggressive_buying"
	TypeAggressiveSelling Type = "aggressive_selling"
	TypeInstitutional     Type = "institutional_flow"
	TypeSpread            Type = "spread"
	TypeUnusualVolume     Type = "unusual_volume"
)

// FlowPattern is recomputed on every analysis pass and supersedes the previous one
type FlowPattern struct {
	Type         Type            `json:"pattern_type"`
	Symbol       string          `json:"symbol"`
	NetSentiment float64         `json:"net_sentiment"` // -1..1
	Significant  bool            `json:"significance"`
	Score        float64         `json:"score"` // the gated statistic: proportion, burst score or z-score
	Confidence   float64         `json:"confidence"`
	TotalPremium decimal.Decimal `json:"total_premium"`
	TradeCount   int             `json:"trade_count"`
	TradeIDs     []string        `json:"trade_ids,omitempty"`
	WindowStart  time.Time       `json:"window_start"`
	WindowEnd    time.Time       `json:"window_end"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}
