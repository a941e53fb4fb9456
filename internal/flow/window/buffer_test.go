package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/domain/trade"
)

var base = time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)

func at(id string, offset time.Duration) trade.Trade {
	return trade.Trade{ID: id, Timestamp: base.Add(offset)}
}

func TestBuffer_AddKeepsTimestampOrder(t *testing.T) {
	b := NewBuffer(4)
	b.Add(at("a", 0))
	b.Add(at("c", 2*time.Second))
	b.Add(at("b", time.Second))
	b.Add(at("d", 2*time.Second))

	assert.Equal(t, []string{"a", "b", "c", "d"}, trade.IDs(b.All()))
	assert.Equal(t, base.Add(2*time.Second), b.Newest())
}

func TestBuffer_PruneBefore(t *testing.T) {
	b := NewBuffer(4)
	for i, id := range []string{"a", "b", "c"} {
		b.Add(at(id, time.Duration(i)*time.Minute))
	}

	evicted := b.PruneBefore(base.Add(time.Minute))
	require.Len(t, evicted, 1)
	assert.Equal(t, "a", evicted[0].ID)
	assert.Equal(t, 2, b.Len())

	assert.Nil(t, b.PruneBefore(base))
}

func TestBuffer_TrimTo(t *testing.T) {
	b := NewBuffer(4)
	for i, id := range []string{"a", "b", "c"} {
		b.Add(at(id, time.Duration(i)*time.Second))
	}
	evicted := b.TrimTo(2)
	assert.Equal(t, []string{"a"}, trade.IDs(evicted))
	assert.Equal(t, []string{"b", "c"}, trade.IDs(b.All()))
	assert.Nil(t, b.TrimTo(0))
}

func TestBuffer_Between(t *testing.T) {
	b := NewBuffer(4)
	for i, id := range []string{"a", "b", "c", "d"} {
		b.Add(at(id, time.Duration(i)*time.Second))
	}

	got := b.Between(base.Add(time.Second), base.Add(2*time.Second))
	assert.Equal(t, []string{"b", "c"}, trade.IDs(got))

	assert.Empty(t, b.Between(base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.Empty(t, NewBuffer(0).Between(base, base))
	assert.True(t, NewBuffer(0).Newest().IsZero())
}
