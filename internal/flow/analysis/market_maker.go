package analysis

import (
	"math"

	"optix/internal/domain/dealer"
	"optix/internal/domain/trade"
)

// MarketMakerAnalyzer estimates dealer Greeks assuming liquidity providers take the
// other side of every customer print. Mid fills carry no inferable side and are skipped.
type MarketMakerAnalyzer struct {
	cfg DealerConfig
}

// NewMarketMakerAnalyzer creates a dealer exposure estimator
func NewMarketMakerAnalyzer(cfg DealerConfig) *MarketMakerAnalyzer {
	return &MarketMakerAnalyzer{cfg: cfg}
}

// EstimatePosition sums dealer-signed exposure over trades
func (m *MarketMakerAnalyzer) EstimatePosition(symbol string, trades []trade.Trade) dealer.Position {
	pos := dealer.Neutral(symbol)

	for _, t := range trades {
		customer := t.Direction().Sign()
		if customer == 0 {
			pos.SkippedTrades++
			continue
		}
		g := EstimateGreeks(t, m.cfg)
		scale := float64(-customer) * float64(t.Size) * trade.ContractMultiplier

		pos.NetDelta += g.Delta * scale
		pos.NetGamma += g.Gamma * scale
		pos.NetVega += g.Vega * scale
		pos.NetTheta += g.Theta * scale
		pos.TradeCount++
		if t.Timestamp.After(pos.EstimatedAt) {
			pos.EstimatedAt = t.Timestamp
		}
	}
	if len(trades) > 0 {
		first, last := trades[0].Timestamp, trades[len(trades)-1].Timestamp
		if last.After(first) {
			pos.Lookback = last.Sub(first)
		}
	}

	pos.PositionBias = m.bias(pos.NetGamma)
	pos.HedgePressure = m.pressure(pos.PositionBias, pos.NetDelta)
	return pos
}

// bias: negative net gamma means dealers chase the underlying when hedging
func (m *MarketMakerAnalyzer) bias(netGamma float64) dealer.Bias {
	band := math.Abs(m.cfg.GammaNeutralBand)
	switch {
	case netGamma < -band:
		return dealer.ShortGamma
	case netGamma > band:
		return dealer.LongGamma
	default:
		return dealer.NeutralBias
	}
}

// pressure: a dealer short delta buys the underlying to flatten, long delta sells
func (m *MarketMakerAnalyzer) pressure(bias dealer.Bias, netDelta float64) dealer.HedgePressure {
	if bias == dealer.NeutralBias || math.Abs(netDelta) <= math.Abs(m.cfg.DeltaNeutralBand) {
		return dealer.PressureNeutral
	}
	if netDelta < 0 {
		return dealer.PressureBuy
	}
	return dealer.PressureSell
}
