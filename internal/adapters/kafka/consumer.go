package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"optix/internal/adapters/retry"
	"optix/internal/metrics"
	"optix/pkg/logger"
)

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer handles Kafka message consumption
type Consumer struct {
	reader  messageReader
	topic   string
	backoff *retry.Retrier // pause between failed reads
	log     *logger.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10e6 // 10MB
	}

	log := logger.Get().With("component", "kafka_consumer", "topic", cfg.Topic)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.LastOffset, // live flow only
	})

	log.Infow("Kafka consumer created",
		"brokers", cfg.Brokers,
		"group_id", cfg.GroupID,
	)

	return &Consumer{
		reader:  reader,
		topic:   cfg.Topic,
		backoff: readBackoff(),
		log:     log,
	}
}

func readBackoff() *retry.Retrier {
	return retry.New(retry.Config{
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Strategy:     retry.StrategyExponential,
		Multiplier:   2,
	})
}

// MessageHandler is a function that processes a message
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consume reads messages until ctx ends. Handler errors are logged and skipped
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.log.Info("Starting consumer")

	failures := 0
	for {
		msg, err := c.read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Consumer stopped")
				return ctx.Err()
			}
			wait := c.backoff.Delay(failures)
			failures++
			c.log.Errorw("Failed to read message", "error", err, "failures", failures, "retry_in", wait)
			if retry.Sleep(ctx, wait) != nil {
				c.log.Info("Consumer stopped")
				return ctx.Err()
			}
			continue
		}
		failures = 0

		err = handler(ctx, msg)
		metrics.RecordKafkaMessage(c.topic, "in", err)
		if err != nil {
			c.log.Warnw("Failed to handle message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}
	}
}

// read checks for shutdown before blocking on the reader
func (c *Consumer) read(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	default:
	}

	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return kafka.Message{}, ctx.Err()
		}
		return kafka.Message{}, err
	}
	return msg, nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
