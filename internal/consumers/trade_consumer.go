package consumers

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	kafkaadapter "optix/internal/adapters/kafka"
	"optix/internal/domain/trade"
	"optix/internal/flow/engine"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// TradeProcessor is the part of the engine the consumer drives
type TradeProcessor interface {
	ProcessTrade(ctx context.Context, t trade.Trade) (*engine.Result, error)
}

// TradeConsumer feeds option prints from Kafka into the flow engine
type TradeConsumer struct {
	consumer  *kafkaadapter.Consumer
	processor TradeProcessor
	log       *logger.Logger
}

// NewTradeConsumer creates a new trade consumer
func NewTradeConsumer(consumer *kafkaadapter.Consumer, processor TradeProcessor) *TradeConsumer {
	return &TradeConsumer{
		consumer:  consumer,
		processor: processor,
		log:       logger.Component("trade_consumer"),
	}
}

// Start consumes until ctx is cancelled
func (c *TradeConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting trade consumer")

	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.log.Errorw("Failed to close trade consumer", "error", err)
		}
	}()

	err := c.consumer.Consume(ctx, c.handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// handle decodes and processes one message. Rejected prints are never retried
func (c *TradeConsumer) handle(ctx context.Context, msg kafka.Message) error {
	t, err := DecodeTrade(msg.Value)
	if err != nil {
		return err
	}

	res, err := c.processor.ProcessTrade(ctx, t)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrDuplicateTrade):
		c.log.Debugw("Duplicate trade skipped", "trade_id", t.ID, "symbol", t.Symbol)
		return nil
	default:
		return err
	}

	if res != nil && len(res.AlertsCreated) > 0 {
		c.log.Infow("Trade raised alerts",
			"trade_id", t.ID,
			"symbol", t.Symbol,
			"alerts", len(res.AlertsCreated),
		)
	}
	return nil
}

// DecodeTrade parses a JSON trade event
func DecodeTrade(data []byte) (trade.Trade, error) {
	var t trade.Trade
	if err := json.Unmarshal(data, &t); err != nil {
		return trade.Trade{}, errors.Tag(errors.ErrMalformedTrade, err)
	}
	return t, nil
}
