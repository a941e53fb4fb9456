// Package engine routes every options trade through detection, aggregation,
// window analysis and alerting, and serves read-only views of the results.
package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/internal/domain/dealer"
	"optix/internal/domain/detection"
	"optix/internal/domain/pattern"
	"optix/internal/domain/trade"
	"optix/internal/flow/aggregator"
	"optix/internal/flow/analysis"
	"optix/internal/flow/detectors"
	"optix/internal/metrics"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// HistorySink receives pipeline output for offline storage. Calls must not block
type HistorySink interface {
	RecordDetections(detections []detection.Detection)
	RecordPatterns(patterns []pattern.FlowPattern)
	RecordAlerts(alerts []alert.Alert)
}

// Deps are the collaborators shared with the rest of the service. Nil fields get defaults
type Deps struct {
	Alerts     *alerts.Manager
	Aggregator *aggregator.Aggregator
	Sink       HistorySink
}

// Result is what one trade produced
type Result struct {
	Detections    []detection.Detection
	Patterns      []pattern.FlowPattern
	AlertsCreated []alert.Alert
	AlertsMerged  []alert.Alert
	Evaluated     bool // window analysis ran on this trade
}

// Engine is the options flow intelligence orchestrator. Safe for concurrent use;
// trades for one symbol are processed in call order, symbols proceed independently.
type Engine struct {
	cfg  Config
	log  *logger.Logger
	sink HistorySink

	detectors  *detectors.Set
	flow       *analysis.FlowAnalyzer
	dealer     *analysis.MarketMakerAnalyzer
	aggregator *aggregator.Aggregator
	alerts     *alerts.Manager

	mu    sync.RWMutex
	lanes map[string]*lane
}

// New creates an engine
func New(cfg Config, deps Deps) *Engine {
	if cfg.EvaluateEvery < 1 {
		cfg.EvaluateEvery = 1
	}
	if deps.Alerts == nil {
		deps.Alerts = alerts.NewManager(alerts.DefaultConfig())
	}
	if deps.Aggregator == nil {
		deps.Aggregator = aggregator.New(cfg.Aggregator)
	}
	return &Engine{
		cfg:        cfg,
		log:        logger.Component("flow_engine"),
		sink:       deps.Sink,
		detectors:  detectors.NewSet(cfg.Sweep, cfg.Block, cfg.DarkPool),
		flow:       analysis.NewFlowAnalyzer(cfg.Flow),
		dealer:     analysis.NewMarketMakerAnalyzer(cfg.Dealer),
		aggregator: deps.Aggregator,
		alerts:     deps.Alerts,
		lanes:      make(map[string]*lane),
	}
}

// Alerts exposes the alert manager for lifecycle calls
func (e *Engine) Alerts() *alerts.Manager {
	return e.alerts
}

// ProcessTrade runs t through the pipeline. Malformed or duplicate trades are
// rejected before any state changes.
func (e *Engine) ProcessTrade(ctx context.Context, t trade.Trade) (*Result, error) {
	start := time.Now()
	t = t.Normalize()

	if err := t.Validate(); err != nil {
		metrics.RecordTrade("invalid", time.Since(start))
		return nil, errors.Wrapf(err, "trade %q", t.ID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := e.lane(t.Symbol)
	l.mu.Lock()
	if l.ids.Has(t.ID) {
		l.mu.Unlock()
		metrics.RecordTrade("duplicate", time.Since(start))
		return nil, errors.Wrapf(errors.ErrDuplicateTrade, "trade %s", t.ID)
	}
	l.ids.Add(t.ID)

	res := &Result{}
	res.Detections = e.detect(ctx, t, l)

	e.aggregator.Record(t)
	l.record(t, e.cfg.HistoryWindow, e.cfg.MaxHistory)

	if e.due(l, t) {
		res.Patterns = e.evaluate(ctx, l)
		res.Evaluated = true
	}
	l.mu.Unlock()

	// Alert routing runs outside the lane lock; the manager has its own and
	// subscriber callbacks must not stall the symbol.
	for i := range res.Detections {
		metrics.RecordDetection(string(res.Detections[i].Type))
		res.collect(e.alerts.CreateFromDetection(&res.Detections[i]))
	}
	for _, p := range res.Patterns {
		metrics.RecordPattern(string(p.Type))
		res.collect(e.alerts.CreateFromPattern(p))
	}

	e.emit(res)
	metrics.RecordTrade("ok", time.Since(start))
	return res, nil
}

func (r *Result) collect(a alert.Alert, created bool) {
	if created {
		r.AlertsCreated = append(r.AlertsCreated, a)
	} else {
		r.AlertsMerged = append(r.AlertsMerged, a)
	}
}

func (e *Engine) lane(symbol string) *lane {
	e.mu.RLock()
	l, ok := e.lanes[symbol]
	e.mu.RUnlock()
	if ok {
		return l
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.lanes[symbol]; ok {
		return l
	}
	l = newLane(symbol, e.detectors.NewState(symbol), e.cfg.RecentIDs)
	e.lanes[symbol] = l
	e.log.Debugw("Symbol lane created", "symbol", symbol)
	return l
}

func (e *Engine) peekLane(symbol string) *lane {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lanes[strings.ToUpper(strings.TrimSpace(symbol))]
}

func (e *Engine) detect(ctx context.Context, t trade.Trade, l *lane) []detection.Detection {
	var out []detection.Detection
	for _, d := range e.detectors.All() {
		var hit *detection.Detection
		e.guard(ctx, string(d.Type()), t.Symbol, func() {
			hit = d.Detect(t, l.state)
		})
		if hit != nil {
			out = append(out, *hit)
		}
	}
	return out
}

// due reports whether the lane's analysis cadence has elapsed. t is already in history
func (e *Engine) due(l *lane, t trade.Trade) bool {
	l.sinceEval++
	if l.lastEvalAt.IsZero() {
		l.lastEvalAt = t.Timestamp
	}
	if l.sinceEval >= e.cfg.EvaluateEvery ||
		(e.cfg.EvaluateInterval > 0 && t.Timestamp.Sub(l.lastEvalAt) >= e.cfg.EvaluateInterval) {
		l.sinceEval = 0
		l.lastEvalAt = t.Timestamp
		return true
	}
	return false
}

func (e *Engine) evaluate(ctx context.Context, l *lane) []pattern.FlowPattern {
	trades := l.trades(e.cfg.Flow.Window)

	var patterns []pattern.FlowPattern
	e.guard(ctx, "flow_analyzer", l.symbol, func() {
		patterns = e.flow.AnalyzeAll(l.symbol, trades)
	})

	pos := dealer.Neutral(l.symbol)
	e.guard(ctx, "market_maker", l.symbol, func() {
		pos = e.dealer.EstimatePosition(l.symbol, trades)
	})

	l.publish(patterns, pos)
	return patterns
}

// guard runs fn and turns a panic into a logged, counted no-op
func (e *Engine) guard(ctx context.Context, stage, symbol string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DetectorPanics.WithLabelValues(stage).Inc()
			e.log.ErrorWithContext(errors.WithSymbol(ctx, symbol),
				errors.Wrapf(errors.ErrInternal, "%s panicked: %v", stage, r),
				map[string]string{"stage": stage},
			)
		}
	}()
	fn()
}

func (e *Engine) emit(res *Result) {
	if e.sink == nil {
		return
	}
	if len(res.Detections) > 0 {
		e.sink.RecordDetections(res.Detections)
	}
	if len(res.Patterns) > 0 {
		e.sink.RecordPatterns(res.Patterns)
	}
	if n := len(res.AlertsCreated) + len(res.AlertsMerged); n > 0 {
		all := make([]alert.Alert, 0, n)
		all = append(all, res.AlertsCreated...)
		all = append(all, res.AlertsMerged...)
		e.sink.RecordAlerts(all)
	}
}

// OrderFlowSummary returns the symbol's rolling flow statistics
func (e *Engine) OrderFlowSummary(symbol string) aggregator.Summary {
	return e.aggregator.Summary(strings.ToUpper(strings.TrimSpace(symbol)))
}

// GlobalSummary returns flow statistics across every symbol
func (e *Engine) GlobalSummary() aggregator.GlobalSummary {
	return e.aggregator.Snapshot()
}

// ActiveAlerts queries active and acknowledged alerts
func (e *Engine) ActiveAlerts(f alerts.Filter) []alert.Alert {
	f.IncludeInactive = false
	return e.alerts.Query(f)
}

// MarketMakerPosition estimates dealer exposure from the symbol's trades within
// lookback of its newest trade. lookback <= 0 uses the whole retained history.
func (e *Engine) MarketMakerPosition(symbol string, lookback time.Duration) dealer.Position {
	l := e.peekLane(symbol)
	if l == nil {
		return dealer.Neutral(strings.ToUpper(strings.TrimSpace(symbol)))
	}
	return e.dealer.EstimatePosition(l.symbol, l.trades(lookback))
}

// LatestPatterns returns the significant patterns from the symbol's last analysis pass
func (e *Engine) LatestPatterns(symbol string) []pattern.FlowPattern {
	l := e.peekLane(symbol)
	if l == nil {
		return nil
	}
	patterns, _, _ := l.latest()
	return patterns
}

// LatestPosition returns the dealer estimate from the last analysis pass
func (e *Engine) LatestPosition(symbol string) (dealer.Position, bool) {
	l := e.peekLane(symbol)
	if l == nil {
		return dealer.Neutral(strings.ToUpper(strings.TrimSpace(symbol))), false
	}
	_, pos, ok := l.latest()
	return pos, ok
}

// Symbols returns every symbol with a lane, sorted
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.lanes))
	for s := range e.lanes {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

// TrackedSymbols returns the number of symbol lanes
func (e *Engine) TrackedSymbols() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.lanes)
}

// AlertCounts returns alert totals per lifecycle state
func (e *Engine) AlertCounts() map[string]int {
	return e.alerts.Counts()
}
