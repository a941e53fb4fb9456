package detectors

import (
	"sort"
	"strings"

	"optix/internal/domain/detection"
	"optix/internal/domain/trade"
)

// SweepDetector flags aggressive same-direction fills split across exchanges
// within a short window.
type SweepDetector struct {
	cfg SweepConfig
}

// NewSweepDetector creates a sweep detector
func NewSweepDetector(cfg SweepConfig) *SweepDetector {
	return &SweepDetector{cfg: cfg}
}

func (d *SweepDetector) Type() detection.Type {
	return detection.TypeSweep
}

// Detect appends t to the symbol's sweep buffer and evaluates the window ending at t
func (d *SweepDetector) Detect(t trade.Trade, st *SymbolState) *detection.Detection {
	st.Sweep.Add(t)
	st.Sweep.PruneBefore(st.Sweep.Newest().Add(-d.cfg.BufferLookback))
	st.Sweep.TrimTo(d.cfg.MaxBufferSize)

	return d.Evaluate(t, st.Sweep.Between(t.Timestamp.Add(-d.cfg.MaxTimeWindow), t.Timestamp))
}

// Evaluate checks whether the trades in window, which end with newest, form a sweep.
// newest must itself be a leg, so a sweep is reported only by the trade that
// completes or extends it.
func (d *SweepDetector) Evaluate(newest trade.Trade, window []trade.Trade) *detection.Detection {
	dir := newest.Direction()
	if !d.isLeg(newest) || len(window) == 0 {
		return nil
	}

	var qualifying, legs []trade.Trade
	for _, t := range window {
		if t.Direction() != dir || t.Premium.LessThan(d.cfg.MinPremiumPerLeg) {
			continue
		}
		qualifying = append(qualifying, t)
		if t.IsAggressive {
			legs = append(legs, t)
		}
	}
	if len(legs) < d.cfg.MinLegs {
		return nil
	}

	exchanges := distinctExchanges(legs)
	if len(exchanges) < d.cfg.MinExchanges {
		return nil
	}

	span := legs[len(legs)-1].Timestamp.Sub(legs[0].Timestamp)
	exchangeScore := 1.0
	if d.cfg.ExchangeSaturation > 0 {
		exchangeScore = clamp(float64(len(exchanges))/float64(d.cfg.ExchangeSaturation), 0, 1)
	}
	tightness := 1.0
	if d.cfg.MaxTimeWindow > 0 {
		tightness = clamp(1-float64(span)/float64(d.cfg.MaxTimeWindow), 0, 1)
	}
	aggressiveShare := float64(len(legs)) / float64(len(qualifying))

	confidence := d.weighted(exchangeScore, tightness, aggressiveShare)

	det := detection.New(detection.TypeSweep, confidence, legs, dir)
	det.Metadata["exchanges"] = exchanges
	det.Metadata["legs"] = len(legs)
	det.Metadata["span_ms"] = span.Milliseconds()
	det.Metadata["exchange_score"] = exchangeScore
	det.Metadata["tightness_score"] = tightness
	det.Metadata["aggressive_share"] = aggressiveShare
	return det
}

func (d *SweepDetector) isLeg(t trade.Trade) bool {
	return t.IsAggressive && t.Direction() != trade.Neutral && !t.Premium.LessThan(d.cfg.MinPremiumPerLeg)
}

func (d *SweepDetector) weighted(exchanges, tightness, aggressive float64) float64 {
	total := d.cfg.WeightExchanges + d.cfg.WeightTightness + d.cfg.WeightAggressive
	if total <= 0 {
		return clamp((exchanges+tightness+aggressive)/3, 0.01, 1)
	}
	score := (d.cfg.WeightExchanges*exchanges +
		d.cfg.WeightTightness*tightness +
		d.cfg.WeightAggressive*aggressive) / total
	// a sweep that cleared every hard gate is never reported with zero confidence
	return clamp(score, 0.01, 1)
}

func distinctExchanges(trades []trade.Trade) []string {
	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		seen[strings.ToUpper(t.Exchange)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for ex := range seen {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}
