package detectors

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"optix/internal/domain/trade"
	"optix/internal/flow/window"
)

// SymbolState is everything the detectors remember about one symbol between calls.
// It is owned by a single processing lane and never shared.
type SymbolState struct {
	Symbol   string
	Sweep    *window.Buffer
	Sizes    *SizeSample
	DarkPool *DarkPoolVolume
}

// NewSymbolState allocates state sized by the detector configs
func NewSymbolState(symbol string, sweep SweepConfig, block BlockConfig) *SymbolState {
	capacity := sweep.MaxBufferSize
	if capacity <= 0 || capacity > 64 {
		capacity = 64
	}
	return &SymbolState{
		Symbol:   symbol,
		Sweep:    window.NewBuffer(capacity),
		Sizes:    NewSizeSample(block.SampleSize),
		DarkPool: &DarkPoolVolume{},
	}
}

// SizeSample is a bounded ring of recent trade sizes
type SizeSample struct {
	values []int64
	next   int
	full   bool
}

// NewSizeSample creates a ring holding up to capacity sizes
func NewSizeSample(capacity int) *SizeSample {
	if capacity <= 0 {
		capacity = 1
	}
	return &SizeSample{values: make([]int64, 0, capacity)}
}

// Add records a size, overwriting the oldest when full
func (s *SizeSample) Add(size int64) {
	if !s.full {
		s.values = append(s.values, size)
		if len(s.values) == cap(s.values) {
			s.full = true
		}
		return
	}
	s.values[s.next] = size
	s.next = (s.next + 1) % len(s.values)
}

func (s *SizeSample) Len() int {
	return len(s.values)
}

// Percentile returns the nearest-rank p-th percentile, false when empty
func (s *SizeSample) Percentile(p float64) (int64, bool) {
	n := len(s.values)
	if n == 0 {
		return 0, false
	}
	sorted := append([]int64(nil), s.values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1], true
}

type darkPrint struct {
	at      time.Time
	size    int64
	premium decimal.Decimal
}

// DarkPoolVolume tracks rolling off-exchange volume. Context only, never a trigger
type DarkPoolVolume struct {
	prints    []darkPrint
	contracts int64
	premium   decimal.Decimal
}

// Add records t and evicts prints older than window relative to the newest print
func (v *DarkPoolVolume) Add(t trade.Trade, win time.Duration) {
	i := sort.Search(len(v.prints), func(i int) bool {
		return v.prints[i].at.After(t.Timestamp)
	})
	v.prints = append(v.prints, darkPrint{})
	copy(v.prints[i+1:], v.prints[i:])
	v.prints[i] = darkPrint{at: t.Timestamp, size: t.Size, premium: t.Premium}
	v.contracts += t.Size
	v.premium = v.premium.Add(t.Premium)

	cutoff := v.prints[len(v.prints)-1].at.Add(-win)
	drop := 0
	for drop < len(v.prints) && v.prints[drop].at.Before(cutoff) {
		v.contracts -= v.prints[drop].size
		v.premium = v.premium.Sub(v.prints[drop].premium)
		drop++
	}
	v.prints = append(v.prints[:0], v.prints[drop:]...)
}

// Totals returns rolling contracts, premium and print count
func (v *DarkPoolVolume) Totals() (int64, decimal.Decimal, int) {
	return v.contracts, v.premium, len(v.prints)
}
