package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/domain/detection"
	"optix/internal/domain/trade"
)

func TestBlockDetector_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		premium int64
		want    bool
	}{
		{"below contracts", 99, 500_000, false},
		{"at contracts and premium", 100, 100_000, true},
		{"at contracts premium short", 100, 99_999, false},
		{"large", 500, 250_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBlockDetector(DefaultBlockConfig())
			st := NewSymbolState("AAPL", DefaultSweepConfig(), DefaultBlockConfig())
			got := d.Detect(newTrade(1, withSize(tt.size), withPremium(tt.premium)), st)
			assert.Equal(t, tt.want, got != nil)
		})
	}
}

func TestBlockDetector_SmallSizesNeverDetect(t *testing.T) {
	d := NewBlockDetector(DefaultBlockConfig())
	st := NewSymbolState("AAPL", DefaultSweepConfig(), DefaultBlockConfig())
	for size := int64(1); size < 100; size += 7 {
		assert.Nil(t, d.Detect(newTrade(int(size), withSize(size), withPremium(10_000_000)), st))
	}
}

func TestBlockDetector_MidFillRaisesConfidence(t *testing.T) {
	d := NewBlockDetector(DefaultBlockConfig())

	mid := d.Evaluate(newTrade(1, withSize(500), withPremium(250_000), withSide(trade.SideMid)), NewSizeSample(10))
	ask := d.Evaluate(newTrade(2, withSize(500), withPremium(250_000), withSide(trade.SideAsk)), NewSizeSample(10))

	require.NotNil(t, mid)
	require.NotNil(t, ask)
	assert.Equal(t, detection.TypeBlock, mid.Type)
	assert.Greater(t, mid.Confidence, ask.Confidence)
	assert.Equal(t, true, mid.Metadata["mid_fill"])
	assert.Equal(t, false, mid.Metadata["percentile_gated"])
	assert.Equal(t, trade.Neutral, mid.Direction)
}

func TestBlockDetector_PercentileGate(t *testing.T) {
	cfg := DefaultBlockConfig()
	d := NewBlockDetector(cfg)

	t.Run("large history suppresses", func(t *testing.T) {
		st := NewSymbolState("AAPL", DefaultSweepConfig(), cfg)
		for i := 0; i < cfg.MinSamples; i++ {
			st.Sizes.Add(1_000)
		}
		assert.Nil(t, d.Detect(newTrade(1, withSize(500), withPremium(250_000)), st))
	})

	t.Run("small history passes", func(t *testing.T) {
		st := NewSymbolState("AAPL", DefaultSweepConfig(), cfg)
		for i := 0; i < cfg.MinSamples; i++ {
			st.Sizes.Add(10)
		}
		det := d.Detect(newTrade(1, withSize(500), withPremium(250_000)), st)
		require.NotNil(t, det)
		assert.Equal(t, true, det.Metadata["percentile_gated"])
		assert.Equal(t, int64(10), det.Metadata["size_threshold"])
	})

	t.Run("sample records every trade", func(t *testing.T) {
		st := NewSymbolState("AAPL", DefaultSweepConfig(), cfg)
		d.Detect(newTrade(1, withSize(5)), st)
		d.Detect(newTrade(2, withSize(500), withPremium(250_000)), st)
		assert.Equal(t, 2, st.Sizes.Len())
	})
}

func TestBlockDetector_ConfidenceGrowsWithSize(t *testing.T) {
	d := NewBlockDetector(DefaultBlockConfig())
	small := d.Evaluate(newTrade(1, withSize(120), withPremium(150_000)), nil)
	big := d.Evaluate(newTrade(2, withSize(450), withPremium(900_000)), nil)
	require.NotNil(t, small)
	require.NotNil(t, big)
	assert.Greater(t, big.Confidence, small.Confidence)
	assert.LessOrEqual(t, big.Confidence, 1.0)
}

func TestSizeSample_Percentile(t *testing.T) {
	s := NewSizeSample(5)
	_, ok := s.Percentile(95)
	assert.False(t, ok)

	for _, v := range []int64{10, 20, 30, 40, 50, 60, 70} {
		s.Add(v)
	}
	assert.Equal(t, 5, s.Len())

	p95, ok := s.Percentile(95)
	require.True(t, ok)
	assert.Equal(t, int64(70), p95)

	median, _ := s.Percentile(50)
	assert.Equal(t, int64(50), median)
}
