package detectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/domain/detection"
	"optix/internal/domain/trade"
)

func runSweep(d *SweepDetector, trades ...trade.Trade) []*detection.Detection {
	st := NewSymbolState("AAPL", DefaultSweepConfig(), DefaultBlockConfig())
	out := make([]*detection.Detection, 0, len(trades))
	for _, t := range trades {
		out = append(out, d.Detect(t, st))
	}
	return out
}

func TestSweepDetector_FourExchangesWithinWindow(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())
	results := runSweep(d,
		newTrade(1, withExchange("CBOE"), withOffset(0)),
		newTrade(2, withExchange("PHLX"), withOffset(500*time.Millisecond)),
		newTrade(3, withExchange("ISE"), withOffset(time.Second)),
		newTrade(4, withExchange("AMEX"), withOffset(1500*time.Millisecond)),
	)

	for _, r := range results[:3] {
		assert.Nil(t, r, "fewer than four legs is not a sweep")
	}
	det := results[3]
	require.NotNil(t, det)
	assert.Equal(t, detection.TypeSweep, det.Type)
	assert.Equal(t, "AAPL", det.Symbol)
	assert.Len(t, det.Trades, 4)
	assert.Equal(t, trade.Buy, det.Direction)
	assert.GreaterOrEqual(t, det.Confidence, 0.7)
	assert.LessOrEqual(t, det.Confidence, 1.0)
	assert.Equal(t, "48000", det.TotalPremium.String())
	assert.Equal(t, []string{"AMEX", "CBOE", "ISE", "PHLX"}, det.Metadata["exchanges"])
}

func TestSweepDetector_SingleExchangeNeverSweeps(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())
	var trades []trade.Trade
	for i := 0; i < 20; i++ {
		trades = append(trades, newTrade(i, withExchange("cboe"), withOffset(time.Duration(i)*50*time.Millisecond)))
	}
	for _, r := range runSweep(d, trades...) {
		assert.Nil(t, r)
	}
}

func TestSweepDetector_AnyTwoExchangesMeetingLegsFires(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())
	for legs := 4; legs <= 8; legs++ {
		var trades []trade.Trade
		for i := 0; i < legs; i++ {
			ex := "CBOE"
			if i%2 == 1 {
				ex = "ISE"
			}
			trades = append(trades, newTrade(i, withExchange(ex), withOffset(time.Duration(i)*200*time.Millisecond)))
		}
		results := runSweep(d, trades...)
		last := results[len(results)-1]
		require.NotNil(t, last, "legs=%d", legs)
		assert.Greater(t, last.Confidence, 0.0)
		assert.LessOrEqual(t, last.Confidence, 1.0)
	}
}

func TestSweepDetector_HardGates(t *testing.T) {
	exchanges := []string{"CBOE", "PHLX", "ISE", "AMEX"}
	build := func(mutate func(i int) []tradeOpt) []trade.Trade {
		var trades []trade.Trade
		for i, ex := range exchanges {
			opts := append([]tradeOpt{withExchange(ex), withOffset(time.Duration(i) * 300 * time.Millisecond)}, mutate(i)...)
			trades = append(trades, newTrade(i, opts...))
		}
		return trades
	}

	tests := []struct {
		name   string
		mutate func(i int) []tradeOpt
	}{
		{"leg below premium floor", func(i int) []tradeOpt {
			if i == 1 {
				return []tradeOpt{withPremium(9_999)}
			}
			return nil
		}},
		{"leg not aggressive", func(i int) []tradeOpt {
			if i == 2 {
				return []tradeOpt{passive()}
			}
			return nil
		}},
		{"leg in opposite direction", func(i int) []tradeOpt {
			if i == 0 {
				return []tradeOpt{withSide(trade.SideBid)}
			}
			return nil
		}},
		{"legs spread beyond window", func(i int) []tradeOpt {
			return []tradeOpt{withOffset(time.Duration(i) * 900 * time.Millisecond)}
		}},
		{"newest at mid", func(i int) []tradeOpt {
			if i == 3 {
				return []tradeOpt{withSide(trade.SideMid)}
			}
			return nil
		}},
	}

	d := NewSweepDetector(DefaultSweepConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := runSweep(d, build(tt.mutate)...)
			assert.Nil(t, results[len(results)-1])
		})
	}
}

func TestSweepDetector_OnlyLegsReportTheSweep(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())
	results := runSweep(d,
		newTrade(0, withExchange("CBOE"), withOffset(0)),
		newTrade(1, withExchange("PHLX"), withOffset(300*time.Millisecond)),
		newTrade(2, withExchange("ISE"), withOffset(600*time.Millisecond)),
		newTrade(3, withExchange("AMEX"), withOffset(900*time.Millisecond)),
		newTrade(4, withExchange("CBOE"), withOffset(1200*time.Millisecond), withPremium(100), withSize(1)),
		newTrade(5, withExchange("BOX"), withOffset(1300*time.Millisecond), passive()),
		newTrade(6, withExchange("ISE"), withOffset(1400*time.Millisecond)),
	)

	require.NotNil(t, results[3])
	assert.Equal(t, []string{"t-0", "t-1", "t-2", "t-3"}, results[3].TradeIDs())

	assert.Nil(t, results[4], "print below the leg floor does not repeat the sweep")
	assert.Nil(t, results[5], "passive fill does not repeat the sweep")

	extended := results[6]
	require.NotNil(t, extended, "a new leg extends the sweep")
	ids := extended.TradeIDs()
	assert.Equal(t, []string{"t-0", "t-1", "t-2", "t-3", "t-6"}, ids)
	assert.Equal(t, "t-6", ids[len(ids)-1])
}

func TestSweepDetector_EvaluateRequiresNewestLeg(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())
	var window []trade.Trade
	for i, ex := range []string{"CBOE", "PHLX", "ISE", "AMEX"} {
		window = append(window, newTrade(i, withExchange(ex), withOffset(time.Duration(i)*100*time.Millisecond)))
	}
	small := newTrade(9, withOffset(500*time.Millisecond), withPremium(500))
	window = append(window, small)

	assert.Nil(t, d.Evaluate(small, window))
	assert.NotNil(t, d.Evaluate(window[3], window[:4]))
}

func TestSweepDetector_ConfidenceMonotonic(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())

	sweep := func(venues []string, step time.Duration) float64 {
		var trades []trade.Trade
		for i, ex := range venues {
			trades = append(trades, newTrade(i, withExchange(ex), withOffset(time.Duration(i)*step)))
		}
		results := runSweep(d, trades...)
		det := results[len(results)-1]
		require.NotNil(t, det)
		return det.Confidence
	}

	twoVenues := sweep([]string{"CBOE", "ISE", "CBOE", "ISE"}, 300*time.Millisecond)
	fourVenues := sweep([]string{"CBOE", "ISE", "PHLX", "AMEX"}, 300*time.Millisecond)
	assert.Greater(t, fourVenues, twoVenues)

	loose := sweep([]string{"CBOE", "ISE", "PHLX", "AMEX"}, 600*time.Millisecond)
	tight := sweep([]string{"CBOE", "ISE", "PHLX", "AMEX"}, 100*time.Millisecond)
	assert.Greater(t, tight, loose)
}

func TestSweepDetector_PassiveFillsLowerConfidence(t *testing.T) {
	d := NewSweepDetector(DefaultSweepConfig())
	venues := []string{"CBOE", "ISE", "PHLX", "AMEX"}

	var clean, diluted []trade.Trade
	for i, ex := range venues {
		clean = append(clean, newTrade(i, withExchange(ex), withOffset(time.Duration(i)*100*time.Millisecond)))
	}
	diluted = append(diluted, newTrade(100, withExchange("BOX"), passive()))
	diluted = append(diluted, clean...)

	a := runSweep(d, clean...)
	b := runSweep(d, diluted...)
	require.NotNil(t, a[len(a)-1])
	require.NotNil(t, b[len(b)-1])
	assert.Greater(t, a[len(a)-1].Confidence, b[len(b)-1].Confidence)
}

func TestSweepDetector_BufferBounded(t *testing.T) {
	cfg := DefaultSweepConfig()
	cfg.MaxBufferSize = 8
	d := NewSweepDetector(cfg)
	st := NewSymbolState("AAPL", cfg, DefaultBlockConfig())

	for i := 0; i < 50; i++ {
		d.Detect(newTrade(i, withOffset(time.Duration(i)*time.Millisecond)), st)
	}
	assert.Equal(t, 8, st.Sweep.Len())

	d.Detect(newTrade(99, withOffset(time.Minute)), st)
	assert.Equal(t, 1, st.Sweep.Len(), "lookback evicts trades older than the buffer horizon")
}
