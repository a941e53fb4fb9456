package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/internal/domain/dealer"
	"optix/internal/domain/detection"
	"optix/internal/domain/pattern"
	"optix/internal/domain/trade"
	"optix/pkg/errors"
)

var t0 = time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)

func newEngine(sink HistorySink) *Engine {
	clock := func() time.Time { return t0 }
	return New(DefaultConfig(), Deps{
		Alerts: alerts.NewManager(alerts.DefaultConfig(), alerts.WithClock(clock)),
		Sink:   sink,
	})
}

func optionTrade(id string, symbol string, offset time.Duration) trade.Trade {
	return trade.Trade{
		ID:             id,
		Symbol:         symbol,
		OptionType:     trade.Call,
		Strike:         decimal.NewFromInt(190),
		Expiration:     t0.AddDate(0, 0, 21),
		Premium:        decimal.NewFromInt(12_000),
		Size:           40,
		ExecutionPrice: decimal.NewFromInt(3),
		Timestamp:      t0.Add(offset),
		Exchange:       "CBOE",
		ExecutionSide:  trade.SideAsk,
		IsAggressive:   true,
	}
}

func process(t *testing.T, e *Engine, trades ...trade.Trade) []*Result {
	t.Helper()
	out := make([]*Result, 0, len(trades))
	for _, tr := range trades {
		res, err := e.ProcessTrade(context.Background(), tr)
		require.NoError(t, err, "trade %s", tr.ID)
		out = append(out, res)
	}
	return out
}

func TestEngine_SweepAcrossFourVenues(t *testing.T) {
	e := newEngine(nil)
	var trades []trade.Trade
	for i, ex := range []string{"CBOE", "PHLX", "ISE", "AMEX"} {
		tr := optionTrade(fmt.Sprintf("s-%d", i), "AAPL", time.Duration(i)*500*time.Millisecond)
		tr.Exchange = ex
		trades = append(trades, tr)
	}
	results := process(t, e, trades...)

	var sweeps []detection.Detection
	for _, r := range results {
		for _, d := range r.Detections {
			if d.Type == detection.TypeSweep {
				sweeps = append(sweeps, d)
			}
		}
		assert.Empty(t, r.Patterns)
	}
	require.Len(t, sweeps, 1)
	assert.GreaterOrEqual(t, sweeps[0].Confidence, 0.7)
	assert.Len(t, sweeps[0].Trades, 4)

	active := e.ActiveAlerts(alerts.Filter{MinSeverity: alert.SeverityHigh})
	require.Len(t, active, 1)
	assert.Equal(t, alert.Type(detection.TypeSweep), active[0].Type)
	assert.Equal(t, "AAPL", active[0].Symbol)
	assert.Len(t, e.ActiveAlerts(alerts.Filter{}), 1)
}

func TestEngine_MidFillBlockScoresAboveAskFill(t *testing.T) {
	block := func(side trade.Side) trade.Trade {
		tr := optionTrade("b-1", "SPY", 0)
		tr.Size = 500
		tr.Premium = decimal.NewFromInt(250_000)
		tr.ExecutionSide = side
		tr.IsAggressive = side != trade.SideMid
		return tr
	}

	mid := process(t, newEngine(nil), block(trade.SideMid))[0]
	ask := process(t, newEngine(nil), block(trade.SideAsk))[0]

	require.Len(t, mid.Detections, 1)
	require.Len(t, ask.Detections, 1)
	assert.Equal(t, detection.TypeBlock, mid.Detections[0].Type)
	assert.Equal(t, detection.TypeBlock, ask.Detections[0].Type)
	assert.Greater(t, mid.Detections[0].Confidence, ask.Detections[0].Confidence)
	require.Len(t, mid.AlertsCreated, 1)
}

func TestEngine_SustainedCallBuying(t *testing.T) {
	e := newEngine(nil)
	var trades []trade.Trade
	for i := 0; i < 15; i++ {
		tr := optionTrade(fmt.Sprintf("n-%d", i), "NVDA", time.Duration(i)*40*time.Second)
		tr.Strike = decimal.NewFromInt(120)
		tr.Premium = decimal.NewFromInt(30_000)
		tr.Size = 50
		tr.Exchange = []string{"CBOE", "ISE", "PHLX"}[i%3]
		trades = append(trades, tr)
	}
	results := process(t, e, trades...)
	require.True(t, results[len(results)-1].Evaluated)

	var buying *pattern.FlowPattern
	latest := e.LatestPatterns("nvda")
	for i := range latest {
		if latest[i].Type == pattern.TypeAggressiveBuying {
			buying = &latest[i]
		}
	}
	require.NotNil(t, buying)
	assert.Greater(t, buying.NetSentiment, 0.8)

	pos, ok := e.LatestPosition("NVDA")
	require.True(t, ok)
	assert.Equal(t, dealer.ShortGamma, pos.PositionBias)

	fresh := e.MarketMakerPosition("NVDA", 10*time.Minute)
	assert.Equal(t, dealer.ShortGamma, fresh.PositionBias)
	assert.Equal(t, 15, fresh.TradeCount)

	narrow := e.MarketMakerPosition("NVDA", 100*time.Second)
	assert.Equal(t, 3, narrow.TradeCount)

	found := e.ActiveAlerts(alerts.Filter{Type: alert.Type(pattern.TypeAggressiveBuying)})
	require.Len(t, found, 1, "pattern alerts merge across passes")
	assert.Greater(t, found[0].Occurrences, 1)
}

func TestEngine_EvaluationCadence(t *testing.T) {
	e := newEngine(nil)
	var evaluated []int
	for i := 0; i < 10; i++ {
		res := process(t, e, optionTrade(fmt.Sprintf("c-%d", i), "MSFT", time.Duration(i)*time.Second))[0]
		if res.Evaluated {
			evaluated = append(evaluated, i)
		}
	}
	assert.Equal(t, []int{4, 9}, evaluated)

	res := process(t, e, optionTrade("c-late", "MSFT", 2*time.Minute))[0]
	assert.True(t, res.Evaluated, "interval elapsed in trade time")
}

func TestEngine_InvalidTradeMutatesNothing(t *testing.T) {
	e := newEngine(nil)
	bad := optionTrade("x-1", "AAPL", 0)
	bad.Premium = decimal.Zero
	bad.ExecutionSide = "sideways"

	res, err := e.ProcessTrade(context.Background(), bad)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errors.ErrMalformedTrade)

	var merr *errors.MultiError
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)

	assert.Empty(t, e.Symbols())
	assert.Equal(t, 0, e.OrderFlowSummary("AAPL").TradeCount)
	assert.Empty(t, e.ActiveAlerts(alerts.Filter{}))
}

func TestEngine_DuplicateTradeRejected(t *testing.T) {
	e := newEngine(nil)
	tr := optionTrade("d-1", "AAPL", 0)
	process(t, e, tr)

	_, err := e.ProcessTrade(context.Background(), tr)
	assert.ErrorIs(t, err, errors.ErrDuplicateTrade)
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
	assert.Equal(t, 1, e.OrderFlowSummary("AAPL").TradeCount)
}

func TestEngine_UnknownSymbolQueries(t *testing.T) {
	e := newEngine(nil)
	assert.Equal(t, 0, e.OrderFlowSummary("ZZZ").TradeCount)
	assert.Empty(t, e.LatestPatterns("ZZZ"))
	pos := e.MarketMakerPosition("zzz", time.Hour)
	assert.Equal(t, "ZZZ", pos.Symbol)
	assert.Equal(t, dealer.NeutralBias, pos.PositionBias)
	_, ok := e.LatestPosition("ZZZ")
	assert.False(t, ok)
}

func TestEngine_ConcurrentSymbols(t *testing.T) {
	e := newEngine(nil)
	symbols := []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "META"}
	const perSymbol = 40

	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 0; i < perSymbol; i++ {
				tr := optionTrade(fmt.Sprintf("%s-%d", sym, i), sym, time.Duration(i)*3*time.Second)
				_, err := e.ProcessTrade(context.Background(), tr)
				assert.NoError(t, err)
			}
		}(sym)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = e.GlobalSummary()
			_ = e.ActiveAlerts(alerts.Filter{})
			_ = e.MarketMakerPosition("AAPL", time.Minute)
		}
	}()
	wg.Wait()

	assert.Equal(t, len(symbols), e.TrackedSymbols())
	global := e.GlobalSummary()
	for _, sym := range symbols {
		assert.Equal(t, perSymbol, global.Symbols[sym].TradeCount, sym)
	}
	assert.True(t, decimal.NewFromInt(12_000*perSymbol*int64(len(symbols))).Equal(global.TotalPremium))
}

type fakeSink struct {
	mu         sync.Mutex
	detections []detection.Detection
	patterns   []pattern.FlowPattern
	alerts     []alert.Alert
}

func (f *fakeSink) RecordDetections(d []detection.Detection) {
	f.mu.Lock()
	f.detections = append(f.detections, d...)
	f.mu.Unlock()
}

func (f *fakeSink) RecordPatterns(p []pattern.FlowPattern) {
	f.mu.Lock()
	f.patterns = append(f.patterns, p...)
	f.mu.Unlock()
}

func (f *fakeSink) RecordAlerts(a []alert.Alert) {
	f.mu.Lock()
	f.alerts = append(f.alerts, a...)
	f.mu.Unlock()
}

func TestEngine_EmitsHistory(t *testing.T) {
	sink := &fakeSink{}
	e := newEngine(sink)
	tr := optionTrade("h-1", "SPY", 0)
	tr.Size = 500
	tr.Premium = decimal.NewFromInt(250_000)
	process(t, e, tr)

	require.Len(t, sink.detections, 1)
	assert.Equal(t, detection.TypeBlock, sink.detections[0].Type)
	require.Len(t, sink.alerts, 1)
	assert.Empty(t, sink.patterns)
}
