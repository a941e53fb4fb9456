// Package window holds the time-ordered trade buffer shared by the flow stages.
package window

import (
	"sort"
	"time"

	"optix/internal/domain/trade"
)

// Buffer keeps trades ordered by timestamp. Late prints are inserted at their
// execution time so readers always see a monotonic sequence. Not safe for
// concurrent use; owners guard it with their own lock.
type Buffer struct {
	trades []trade.Trade
}

// NewBuffer creates a buffer with the given initial capacity
func NewBuffer(capacity int) *Buffer {
	return &Buffer{trades: make([]trade.Trade, 0, capacity)}
}

// Add inserts t keeping timestamp order. Equal timestamps keep arrival order
func (b *Buffer) Add(t trade.Trade) {
	n := len(b.trades)
	if n == 0 || !t.Timestamp.Before(b.trades[n-1].Timestamp) {
		b.trades = append(b.trades, t)
		return
	}
	i := sort.Search(n, func(i int) bool {
		return b.trades[i].Timestamp.After(t.Timestamp)
	})
	b.trades = append(b.trades, trade.Trade{})
	copy(b.trades[i+1:], b.trades[i:])
	b.trades[i] = t
}

// PruneBefore drops trades older than cutoff and returns them
func (b *Buffer) PruneBefore(cutoff time.Time) []trade.Trade {
	i := sort.Search(len(b.trades), func(i int) bool {
		return !b.trades[i].Timestamp.Before(cutoff)
	})
	if i == 0 {
		return nil
	}
	evicted := append([]trade.Trade(nil), b.trades[:i]...)
	b.trades = append(b.trades[:0], b.trades[i:]...)
	return evicted
}

// TrimTo drops the oldest trades until at most max remain. max <= 0 disables the cap
func (b *Buffer) TrimTo(max int) []trade.Trade {
	if max <= 0 || len(b.trades) <= max {
		return nil
	}
	over := len(b.trades) - max
	evicted := append([]trade.Trade(nil), b.trades[:over]...)
	b.trades = append(b.trades[:0], b.trades[over:]...)
	return evicted
}

// Between returns a copy of trades with from <= timestamp <= to
func (b *Buffer) Between(from, to time.Time) []trade.Trade {
	lo := sort.Search(len(b.trades), func(i int) bool {
		return !b.trades[i].Timestamp.Before(from)
	})
	hi := sort.Search(len(b.trades), func(i int) bool {
		return b.trades[i].Timestamp.After(to)
	})
	if lo >= hi {
		return nil
	}
	return append([]trade.Trade(nil), b.trades[lo:hi]...)
}

// All returns a copy of every buffered trade
func (b *Buffer) All() []trade.Trade {
	return append([]trade.Trade(nil), b.trades...)
}

// Newest returns the latest timestamp, zero when empty
func (b *Buffer) Newest() time.Time {
	if len(b.trades) == 0 {
		return time.Time{}
	}
	return b.trades[len(b.trades)-1].Timestamp
}

func (b *Buffer) Len() int {
	return len(b.trades)
}
