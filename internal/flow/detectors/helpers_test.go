package detectors

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"optix/internal/domain/trade"
)

var t0 = time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)

type tradeOpt func(*trade.Trade)

func newTrade(id int, opts ...tradeOpt) trade.Trade {
	t := trade.Trade{
		ID:             fmt.Sprintf("t-%d", id),
		Symbol:         "AAPL",
		OptionType:     trade.Call,
		Strike:         decimal.NewFromInt(200),
		Expiration:     t0.AddDate(0, 1, 0),
		Premium:        decimal.NewFromInt(12_000),
		Size:           40,
		ExecutionPrice: decimal.NewFromInt(3),
		Timestamp:      t0,
		Exchange:       "CBOE",
		ExecutionSide:  trade.SideAsk,
		IsAggressive:   true,
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

func withExchange(ex string) tradeOpt { return func(t *trade.Trade) { t.Exchange = ex } }
func withOffset(d time.Duration) tradeOpt {
	return func(t *trade.Trade) { t.Timestamp = t0.Add(d) }
}
func withPremium(p int64) tradeOpt { return func(t *trade.Trade) { t.Premium = decimal.NewFromInt(p) } }
func withSize(s int64) tradeOpt     { return func(t *trade.Trade) { t.Size = s } }
func withSide(s trade.Side) tradeOpt {
	return func(t *trade.Trade) { t.ExecutionSide = s }
}
func passive() tradeOpt { return func(t *trade.Trade) { t.IsAggressive = false } }
func reportedAfter(d time.Duration) tradeOpt {
	return func(t *trade.Trade) { t.ReportedAt = t.Timestamp.Add(d) }
}
