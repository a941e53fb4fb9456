package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix/internal/domain/trade"
	"optix/internal/flow/engine"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

type fakeProcessor struct {
	got []trade.Trade
	err error
}

func (f *fakeProcessor) ProcessTrade(_ context.Context, t trade.Trade) (*engine.Result, error) {
	f.got = append(f.got, t)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Result{}, nil
}

func newTestConsumer(p TradeProcessor) *TradeConsumer {
	return &TradeConsumer{processor: p, log: logger.Get()}
}

const tradeJSON = `{
	"trade_id": "t-1",
	"underlying_symbol": "AAPL",
	"option_type": "call",
	"strike": "190",
	"expiration": "2026-11-20T00:00:00Z",
	"premium": "12500.50",
	"size": 25,
	"execution_price": "5.002",
	"timestamp": "2026-10-14T14:30:00Z",
	"exchange": "CBOE",
	"execution_side": "ask",
	"is_aggressive": true
}`

func TestDecodeTrade(t *testing.T) {
	tr, err := DecodeTrade([]byte(tradeJSON))
	require.NoError(t, err)

	assert.Equal(t, "t-1", tr.ID)
	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, trade.Call, tr.OptionType)
	assert.True(t, tr.Strike.Equal(decimal.NewFromInt(190)))
	assert.True(t, tr.Premium.Equal(decimal.RequireFromString("12500.50")))
	assert.Equal(t, int64(25), tr.Size)
	assert.Equal(t, trade.SideAsk, tr.ExecutionSide)
	assert.True(t, tr.IsAggressive)
	assert.Equal(t, time.Date(2026, 10, 14, 14, 30, 0, 0, time.UTC), tr.Timestamp.UTC())
}

func TestDecodeTrade_Malformed(t *testing.T) {
	_, err := DecodeTrade([]byte(`{"trade_id": `))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedTrade))
}

func TestHandle_PassesTradeToProcessor(t *testing.T) {
	p := &fakeProcessor{}
	c := newTestConsumer(p)

	err := c.handle(context.Background(), kafka.Message{Key: []byte("AAPL"), Value: []byte(tradeJSON)})
	require.NoError(t, err)
	require.Len(t, p.got, 1)
	assert.Equal(t, "t-1", p.got[0].ID)
}

func TestHandle_DuplicateIsNotAnError(t *testing.T) {
	p := &fakeProcessor{err: errors.ErrDuplicateTrade}
	c := newTestConsumer(p)

	err := c.handle(context.Background(), kafka.Message{Value: []byte(tradeJSON)})
	assert.NoError(t, err)
}

func TestHandle_RejectionsSurface(t *testing.T) {
	p := &fakeProcessor{err: errors.Tag(errors.ErrMalformedTrade, errors.New("premium must be positive"))}
	c := newTestConsumer(p)

	err := c.handle(context.Background(), kafka.Message{Value: []byte(tradeJSON)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedTrade))

	err = c.handle(context.Background(), kafka.Message{Value: []byte("not json")})
	require.Error(t, err)
	assert.Len(t, p.got, 1, "undecodable payloads never reach the engine")
}
