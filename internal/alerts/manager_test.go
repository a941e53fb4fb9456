package alerts

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/domain/alert"
	"optix/internal/domain/detection"
	"optix/internal/domain/pattern"
	"optix/pkg/errors"
)

var base = time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{now: base}
	return NewManager(DefaultConfig(), WithClock(clock.Now)), clock
}

func sweepCandidate(at time.Time, ids ...string) Candidate {
	c := Candidate{
		Type:       alert.Type(detection.TypeSweep),
		Symbol:     "aapl",
		Confidence: 0.775,
		EventAt:    at,
	}
	for _, id := range ids {
		c.Contributions = append(c.Contributions, Contribution{TradeID: id, Premium: decimal.NewFromInt(12_000)})
	}
	return c
}

func TestSeverityPolicy_Classify(t *testing.T) {
	p := DefaultSeverityPolicy()
	block := alert.Type(detection.TypeBlock)

	tests := []struct {
		name       string
		typ        alert.Type
		premium    int64
		confidence float64
		want       alert.Severity
	}{
		{"tiny block", block, 10_000, 0.5, alert.SeverityInfo},
		{"low tier", block, 150_000, 0.1, alert.SeverityLow},
		{"medium tier", block, 600_000, 0.75, alert.SeverityMedium},
		{"medium premium low confidence", block, 600_000, 0.5, alert.SeverityLow},
		{"high tier", block, 2_000_000, 0.85, alert.SeverityHigh},
		{"critical tier", block, 6_000_000, 0.95, alert.SeverityCritical},
		{"sweep floor", alert.Type(detection.TypeSweep), 48_000, 0.775, alert.SeverityHigh},
		{"sweep above floor", alert.Type(detection.TypeSweep), 6_000_000, 0.95, alert.SeverityCritical},
		{"dark pool floor", alert.Type(detection.TypeDarkPool), 1_000, 0.2, alert.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(tt.typ, decimal.NewFromInt(tt.premium), tt.confidence))
		})
	}
}

func TestSeverityPolicy_Monotone(t *testing.T) {
	p := DefaultSeverityPolicy()
	typ := alert.Type(detection.TypeBlock)
	premiums := []int64{0, 50_000, 100_000, 500_000, 1_000_000, 5_000_000, 9_000_000}
	confs := []float64{0, 0.5, 0.7, 0.8, 0.9, 1}

	for i, pr := range premiums {
		for j, c := range confs {
			sev := p.Classify(typ, decimal.NewFromInt(pr), c)
			if i+1 < len(premiums) {
				assert.GreaterOrEqual(t, p.Classify(typ, decimal.NewFromInt(premiums[i+1]), c), sev)
			}
			if j+1 < len(confs) {
				assert.GreaterOrEqual(t, p.Classify(typ, decimal.NewFromInt(pr), confs[j+1]), sev)
			}
		}
	}
}

func TestManager_CreateFromDetection(t *testing.T) {
	m, _ := newTestManager()
	a, created := m.Create(sweepCandidate(base, "t-1", "t-2", "t-3", "t-4"))

	require.True(t, created)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, alert.SeverityHigh, a.Severity)
	assert.Equal(t, alert.StateActive, a.State)
	assert.True(t, a.Active)
	assert.False(t, a.Acknowledged)
	assert.True(t, decimal.NewFromInt(48_000).Equal(a.Premium))
	assert.Equal(t, []string{"t-1", "t-2", "t-3", "t-4"}, a.TradeIDs)
	assert.Equal(t, 1, a.Occurrences)
	assert.Contains(t, a.Title, "$48,000")
}

func TestManager_DedupMerges(t *testing.T) {
	m, clock := newTestManager()
	first, created := m.Create(sweepCandidate(base, "t-1", "t-2", "t-3"))
	require.True(t, created)

	clock.Advance(time.Minute)
	second, created := m.Create(sweepCandidate(base.Add(time.Minute), "t-2", "t-3", "t-4"))
	require.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Occurrences)
	assert.Equal(t, []string{"t-1", "t-2", "t-3", "t-4"}, second.TradeIDs)
	assert.True(t, decimal.NewFromInt(48_000).Equal(second.Premium), "overlapping trades counted once")
	assert.Len(t, m.Query(Filter{}), 1)
}

func TestManager_DedupWindowExpires(t *testing.T) {
	m, _ := newTestManager()
	first, _ := m.Create(sweepCandidate(base, "t-1", "t-2"))
	second, created := m.Create(sweepCandidate(base.Add(6*time.Minute), "t-9"))

	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestManager_DedupKeyedBySymbolAndType(t *testing.T) {
	m, _ := newTestManager()
	_, created := m.Create(sweepCandidate(base, "t-1"))
	require.True(t, created)

	other := sweepCandidate(base, "t-2")
	other.Symbol = "MSFT"
	_, created = m.Create(other)
	assert.True(t, created)

	block := sweepCandidate(base, "t-3")
	block.Type = alert.Type(detection.TypeBlock)
	_, created = m.Create(block)
	assert.True(t, created)
}

func TestManager_MergeNeverLowersSeverity(t *testing.T) {
	m, _ := newTestManager()
	big := Candidate{
		Type:          alert.Type(detection.TypeBlock),
		Symbol:        "SPY",
		Confidence:    0.95,
		Contributions: []Contribution{{TradeID: "b-1", Premium: decimal.NewFromInt(6_000_000)}},
		EventAt:       base,
	}
	first, _ := m.Create(big)
	require.Equal(t, alert.SeverityCritical, first.Severity)

	small := big
	small.Confidence = 0.3
	small.Contributions = []Contribution{{TradeID: "b-2", Premium: decimal.NewFromInt(1_000)}}
	merged, created := m.Create(small)

	require.False(t, created)
	assert.Equal(t, alert.SeverityCritical, merged.Severity)
	assert.InDelta(t, 0.95, merged.Confidence, 1e-9)
}

func TestManager_PatternMergeKeepsLargestWindowPremium(t *testing.T) {
	m, _ := newTestManager()
	p := pattern.FlowPattern{
		Type:         pattern.TypeAggressiveBuying,
		Symbol:       "TSLA",
		Confidence:   0.8,
		TotalPremium: decimal.NewFromInt(400_000),
		TradeIDs:     []string{"a", "b"},
		WindowEnd:    base,
	}
	_, created := m.CreateFromPattern(p)
	require.True(t, created)

	p.TotalPremium = decimal.NewFromInt(600_000)
	p.TradeIDs = []string{"a", "b", "c"}
	p.WindowEnd = base.Add(time.Minute)
	merged, created := m.CreateFromPattern(p)

	require.False(t, created)
	assert.True(t, decimal.NewFromInt(600_000).Equal(merged.Premium))
	assert.Equal(t, []string{"a", "b", "c"}, merged.TradeIDs)
}

func TestManager_Lifecycle(t *testing.T) {
	m, clock := newTestManager()
	a, _ := m.Create(sweepCandidate(base, "t-1"))

	clock.Advance(time.Second)
	require.NoError(t, m.Acknowledge(a.ID, "desk"))
	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.StateAcknowledged, got.State)
	assert.True(t, got.Acknowledged)
	assert.True(t, got.Active)
	assert.Equal(t, "desk", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)

	// idempotent
	require.NoError(t, m.Acknowledge(a.ID, "someone-else"))
	got, _ = m.Get(a.ID)
	assert.Equal(t, "desk", got.AcknowledgedBy)

	require.NoError(t, m.Deactivate(a.ID))
	require.NoError(t, m.Deactivate(a.ID))
	got, _ = m.Get(a.ID)
	assert.Equal(t, alert.StateInactive, got.State)
	assert.False(t, got.Active)
	assert.True(t, got.Acknowledged)

	err = m.Acknowledge(a.ID, "desk")
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestManager_UnknownID(t *testing.T) {
	m, _ := newTestManager()
	assert.ErrorIs(t, m.Acknowledge("missing", "x"), errors.ErrNotFound)
	assert.ErrorIs(t, m.Deactivate("missing"), errors.ErrNotFound)
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestManager_AcknowledgedAlertStopsMerging(t *testing.T) {
	m, _ := newTestManager()
	a, _ := m.Create(sweepCandidate(base, "t-1"))
	require.NoError(t, m.Acknowledge(a.ID, "desk"))

	b, created := m.Create(sweepCandidate(base.Add(time.Second), "t-2"))
	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestManager_QueryHidesInactive(t *testing.T) {
	m, clock := newTestManager()
	a, _ := m.Create(sweepCandidate(base, "t-1"))
	clock.Advance(time.Second)
	other := sweepCandidate(base, "m-1")
	other.Symbol = "MSFT"
	b, _ := m.Create(other)

	require.NoError(t, m.Deactivate(a.ID))

	active := m.Query(Filter{})
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	all := m.Query(Filter{IncludeInactive: true})
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest first")

	assert.Len(t, m.Query(Filter{Symbol: "msft"}), 1)
	assert.Empty(t, m.Query(Filter{MinSeverity: alert.SeverityCritical}))
	assert.Len(t, m.Query(Filter{IncludeInactive: true, Limit: 1}), 1)
}

func TestManager_SubscribeAndUnsubscribe(t *testing.T) {
	m, _ := newTestManager()

	var got []alert.Alert
	unsubscribe := m.Subscribe(func(a alert.Alert) { got = append(got, a) }, Filter{Symbol: "AAPL"})

	m.Subscribe(func(alert.Alert) { panic("boom") }, Filter{})

	first, _ := m.Create(sweepCandidate(base, "t-1"))
	m.Create(sweepCandidate(base.Add(time.Second), "t-2")) // merge, not delivered

	msft := sweepCandidate(base, "m-1")
	msft.Symbol = "MSFT"
	m.Create(msft)

	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	unsubscribe()
	unsubscribe()
	require.NoError(t, m.Deactivate(first.ID))
	m.Create(sweepCandidate(base.Add(time.Hour), "t-3"))
	assert.Len(t, got, 1)
}

func TestManager_ExpireAndPrune(t *testing.T) {
	m, clock := newTestManager()
	a, _ := m.Create(sweepCandidate(base, "t-1"))

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 0, m.ExpireStale(clock.Now()))

	clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, m.ExpireStale(clock.Now()))
	got, _ := m.Get(a.ID)
	assert.Equal(t, alert.StateInactive, got.State)
	assert.Equal(t, 0, m.Prune(clock.Now()))

	clock.Advance(25 * time.Hour)
	assert.Equal(t, 1, m.Prune(clock.Now()))
	_, err := m.Get(a.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	counts := m.Counts()
	assert.Equal(t, 0, counts[string(alert.StateActive)])
}

func TestManager_ConcurrentCreate(t *testing.T) {
	m, _ := newTestManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Create(sweepCandidate(base, "t-1"))
		}(i)
	}
	wg.Wait()

	all := m.Query(Filter{})
	require.Len(t, all, 1)
	assert.Equal(t, 50, all[0].Occurrences)
}
