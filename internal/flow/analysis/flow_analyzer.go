// Package analysis recognises window-level flow patterns and estimates dealer exposure.
package analysis

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"optix/internal/domain/pattern"
	"optix/internal/domain/trade"
)

// FlowAnalyzer classifies sustained behaviour over a rolling window that
// single-trade detectors cannot see. Stateless; safe for concurrent use.
type FlowAnalyzer struct {
	cfg FlowConfig
}

// NewFlowAnalyzer creates a flow analyzer
func NewFlowAnalyzer(cfg FlowConfig) *FlowAnalyzer {
	return &FlowAnalyzer{cfg: cfg}
}

// Config returns the analyzer configuration
func (a *FlowAnalyzer) Config() FlowConfig {
	return a.cfg
}

// Analyze returns the most confident significant pattern, or nil
func (a *FlowAnalyzer) Analyze(symbol string, trades []trade.Trade) *pattern.FlowPattern {
	all := a.AnalyzeAll(symbol, trades)
	if len(all) == 0 {
		return nil
	}
	best := all[0]
	for _, p := range all[1:] {
		if p.Confidence > best.Confidence {
			best = p
		}
	}
	return &best
}

// AnalyzeAll returns every pattern that clears its significance gate
func (a *FlowAnalyzer) AnalyzeAll(symbol string, trades []trade.Trade) []pattern.FlowPattern {
	w := a.windowed(trades)
	if len(w.trades) == 0 || !w.total.IsPositive() {
		return nil
	}

	var out []pattern.FlowPattern
	for _, eval := range []func(*windowView) *pattern.FlowPattern{
		a.aggressive,
		a.institutional,
		a.spread,
		a.unusualVolume,
	} {
		p := eval(w)
		if p == nil || !p.Significant {
			continue
		}
		p.Symbol = symbol
		p.WindowStart = w.start()
		p.WindowEnd = w.end()
		out = append(out, *p)
	}
	return out
}

// windowView is the slice of trades one analysis pass looks at
type windowView struct {
	trades []trade.Trade
	total  decimal.Decimal
}

func (w *windowView) start() time.Time {
	return w.trades[0].Timestamp
}

func (w *windowView) end() time.Time {
	return w.trades[len(w.trades)-1].Timestamp
}

func (a *FlowAnalyzer) windowed(trades []trade.Trade) *windowView {
	if len(trades) == 0 {
		return &windowView{}
	}
	sorted := trades
	if !sort.SliceIsSorted(trades, func(i, j int) bool { return trades[i].Timestamp.Before(trades[j].Timestamp) }) {
		sorted = append([]trade.Trade(nil), trades...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	}

	newest := sorted[len(sorted)-1].Timestamp
	from := 0
	if a.cfg.Window > 0 {
		cutoff := newest.Add(-a.cfg.Window)
		from = sort.Search(len(sorted), func(i int) bool { return !sorted[i].Timestamp.Before(cutoff) })
	}
	view := &windowView{trades: sorted[from:]}
	view.total = trade.Premiums(view.trades)
	return view
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ratio divides decimals as float, zero when den is not positive
func ratio(num, den decimal.Decimal) float64 {
	if !den.IsPositive() {
		return 0
	}
	return num.Div(den).InexactFloat64()
}
