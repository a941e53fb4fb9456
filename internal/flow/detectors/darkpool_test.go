package detectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/domain/detection"
)

func TestDarkPoolDetector_VenueOrDelay(t *testing.T) {
	cfg := DefaultDarkPoolConfig()
	tests := []struct {
		name     string
		trade    func() (opts []tradeOpt)
		want     bool
		minScore float64
	}{
		{"lit venue real time", func() []tradeOpt { return []tradeOpt{withExchange("CBOE")} }, false, 0},
		{"dark venue lowercase", func() []tradeOpt { return []tradeOpt{withExchange("finra_adf")} }, true, cfg.VenueConfidence},
		{"late print on lit venue", func() []tradeOpt {
			return []tradeOpt{withExchange("CBOE"), reportedAfter(45 * time.Second)}
		}, true, cfg.DelayConfidence},
		{"delay at threshold", func() []tradeOpt {
			return []tradeOpt{withExchange("CBOE"), reportedAfter(30 * time.Second)}
		}, false, 0},
		{"dark and late", func() []tradeOpt {
			return []tradeOpt{withExchange("TRF"), reportedAfter(time.Minute)}
		}, true, cfg.VenueConfidence + cfg.BothBonus},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDarkPoolDetector(cfg)
			st := NewSymbolState("AAPL", DefaultSweepConfig(), DefaultBlockConfig())
			opts := append([]tradeOpt{withSize(80), withPremium(60_000)}, tt.trade()...)
			det := d.Detect(newTrade(i, opts...), st)
			if !tt.want {
				assert.Nil(t, det)
				return
			}
			require.NotNil(t, det)
			assert.Equal(t, detection.TypeDarkPool, det.Type)
			assert.GreaterOrEqual(t, det.Confidence, tt.minScore)
			assert.LessOrEqual(t, det.Confidence, 1.0)
		})
	}
}

func TestDarkPoolDetector_FloorsAndRollingVolume(t *testing.T) {
	d := NewDarkPoolDetector(DefaultDarkPoolConfig())
	st := NewSymbolState("AAPL", DefaultSweepConfig(), DefaultBlockConfig())

	assert.Nil(t, d.Detect(newTrade(1, withExchange("DARK"), withSize(49), withPremium(60_000)), st))
	assert.Nil(t, d.Detect(newTrade(2, withExchange("DARK"), withSize(80), withPremium(49_999)), st))

	contracts, premium, prints := st.DarkPool.Totals()
	assert.Equal(t, int64(129), contracts, "sub-floor prints still count as context")
	assert.Equal(t, "109999", premium.String())
	assert.Equal(t, 2, prints)

	det := d.Detect(newTrade(3, withExchange("DARK"), withSize(100), withPremium(100_000), withOffset(time.Minute)), st)
	require.NotNil(t, det)
	assert.Equal(t, int64(229), det.Metadata["rolling_contracts"])
	assert.Equal(t, 3, det.Metadata["rolling_prints"])

	d.Detect(newTrade(4, withExchange("DARK"), withSize(10), withPremium(1_000), withOffset(2*time.Hour)), st)
	contracts, _, prints = st.DarkPool.Totals()
	assert.Equal(t, int64(10), contracts)
	assert.Equal(t, 1, prints)
}

func TestDarkPoolDetector_SizeBonus(t *testing.T) {
	d := NewDarkPoolDetector(DefaultDarkPoolConfig())
	small := d.Detect(newTrade(1, withExchange("DARK"), withSize(60), withPremium(55_000)), NewSymbolState("A", DefaultSweepConfig(), DefaultBlockConfig()))
	large := d.Detect(newTrade(2, withExchange("DARK"), withSize(900), withPremium(900_000)), NewSymbolState("A", DefaultSweepConfig(), DefaultBlockConfig()))
	require.NotNil(t, small)
	require.NotNil(t, large)
	assert.Greater(t, large.Confidence, small.Confidence)
	assert.True(t, d.IsDarkVenue(" sigma_x "))
	assert.False(t, d.IsDarkVenue("NASDAQ"))
}
