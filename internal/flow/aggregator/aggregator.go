// Package aggregator keeps rolling per-symbol order flow statistics.
package aggregator

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"optix/internal/domain/trade"
	"optix/internal/flow/window"
)

// Config controls the aggregation window
type Config struct {
	Window               time.Duration   `envconfig:"WINDOW" default:"60m"`
	InstitutionalPremium decimal.Decimal `envconfig:"INSTITUTIONAL_PREMIUM" default:"100000"`
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Window:               time.Hour,
		InstitutionalPremium: decimal.NewFromInt(100_000),
	}
}

// StrikeSummary is flow at one strike and option type
type StrikeSummary struct {
	Strike     string           `json:"strike"`
	OptionType trade.OptionType `json:"option_type"`
	Premium    decimal.Decimal  `json:"premium"`
	Volume     int64            `json:"volume"`
	Trades     int              `json:"trades"`
}

// Summary is a point-in-time view of one symbol's window
type Summary struct {
	Symbol             string                   `json:"symbol"`
	TotalPremium       decimal.Decimal          `json:"total_premium"`
	CallPremium        decimal.Decimal          `json:"call_premium"`
	PutPremium         decimal.Decimal          `json:"put_premium"`
	TotalVolume        int64                    `json:"total_volume"`
	CallVolume         int64                    `json:"call_volume"`
	PutVolume          int64                    `json:"put_volume"`
	TradeCount         int                      `json:"trade_count"`
	Sentiment          float64                  `json:"sentiment"` // -1 bearish .. 1 bullish
	InstitutionalCount int                      `json:"institutional_count"`
	PutCallRatio       float64                  `json:"put_call_ratio"`
	ByStrike           map[string]StrikeSummary `json:"by_strike"`
	WindowStart        time.Time                `json:"window_start"`
	WindowEnd          time.Time                `json:"window_end"`
}

// GlobalSummary merges every symbol's summary
type GlobalSummary struct {
	Symbols            map[string]Summary `json:"symbols"`
	TotalPremium       decimal.Decimal    `json:"total_premium"`
	TotalVolume        int64              `json:"total_volume"`
	InstitutionalCount int                `json:"institutional_count"`
	GeneratedAt        time.Time          `json:"generated_at"`
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock makes eviction also honour wall time, so a symbol whose feed went
// quiet ages out. Without it the newest recorded trade is the reference.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator holds per-symbol rolling sums. Eviction is lazy on access, there is no timer
type Aggregator struct {
	cfg Config
	now func() time.Time

	mu      sync.RWMutex
	symbols map[string]*symbolFlow
}

// New creates an aggregator
func New(cfg Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		cfg:     cfg,
		symbols: make(map[string]*symbolFlow),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type symbolFlow struct {
	mu     sync.Mutex
	trades *window.Buffer
	sums   totals
}

// Record adds t to its symbol window
func (a *Aggregator) Record(t trade.Trade) {
	f := a.flow(t.Symbol, true)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades.Add(t)
	f.sums.add(t, a.cfg.InstitutionalPremium, 1)
	a.evict(f)
}

// Summary returns symbol stats after evicting stale trades. Unknown symbols give an empty summary
func (a *Aggregator) Summary(symbol string) Summary {
	f := a.flow(symbol, false)
	if f == nil {
		return emptySummary(symbol)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	a.evict(f)
	return f.sums.summary(symbol, f.trades)
}

// Snapshot builds a cross-symbol summary without mutating any symbol's window
func (a *Aggregator) Snapshot() GlobalSummary {
	a.mu.RLock()
	flows := make(map[string]*symbolFlow, len(a.symbols))
	for s, f := range a.symbols {
		flows[s] = f
	}
	a.mu.RUnlock()

	g := GlobalSummary{Symbols: make(map[string]Summary, len(flows)), TotalPremium: decimal.Zero}
	if a.now != nil {
		g.GeneratedAt = a.now()
	}
	for symbol, f := range flows {
		f.mu.Lock()
		s := a.peek(symbol, f)
		f.mu.Unlock()
		if s.TradeCount == 0 {
			continue
		}
		g.Symbols[symbol] = s
		g.TotalPremium = g.TotalPremium.Add(s.TotalPremium)
		g.TotalVolume += s.TotalVolume
		g.InstitutionalCount += s.InstitutionalCount
		if s.WindowEnd.After(g.GeneratedAt) && a.now == nil {
			g.GeneratedAt = s.WindowEnd
		}
	}
	return g
}

// Symbols lists symbols with recorded flow, sorted
func (a *Aggregator) Symbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.symbols))
	for s := range a.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (a *Aggregator) flow(symbol string, create bool) *symbolFlow {
	a.mu.RLock()
	f, ok := a.symbols[symbol]
	a.mu.RUnlock()
	if ok || !create {
		return f
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if f, ok = a.symbols[symbol]; ok {
		return f
	}
	f = &symbolFlow{trades: window.NewBuffer(256), sums: newTotals()}
	a.symbols[symbol] = f
	return f
}

func (a *Aggregator) cutoff(f *symbolFlow) time.Time {
	ref := f.trades.Newest()
	if a.now != nil {
		if now := a.now(); now.After(ref) {
			ref = now
		}
	}
	return ref.Add(-a.cfg.Window)
}

func (a *Aggregator) evict(f *symbolFlow) {
	if f.trades.Len() == 0 {
		return
	}
	for _, t := range f.trades.PruneBefore(a.cutoff(f)) {
		f.sums.add(t, a.cfg.InstitutionalPremium, -1)
	}
}

// peek summarizes as if evicted, leaving the window untouched
func (a *Aggregator) peek(symbol string, f *symbolFlow) Summary {
	if f.trades.Len() == 0 {
		return emptySummary(symbol)
	}
	cutoff := a.cutoff(f)
	sums := f.sums.clone()
	live := window.NewBuffer(f.trades.Len())
	for _, t := range f.trades.All() {
		if t.Timestamp.Before(cutoff) {
			sums.add(t, a.cfg.InstitutionalPremium, -1)
			continue
		}
		live.Add(t)
	}
	return sums.summary(symbol, live)
}

func emptySummary(symbol string) Summary {
	return Summary{
		Symbol:       symbol,
		TotalPremium: decimal.Zero,
		CallPremium:  decimal.Zero,
		PutPremium:   decimal.Zero,
		ByStrike:     map[string]StrikeSummary{},
	}
}
