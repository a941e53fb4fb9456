package channels

import (
	"context"

	"optix/internal/adapters/kafka"
	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/pkg/errors"
)

// Kafka publishes alerts to the alerts topic keyed by symbol
type Kafka struct {
	publisher kafka.Publisher
	topic     string
}

// NewKafka creates a kafka channel. An empty topic uses kafka.TopicAlerts
func NewKafka(p kafka.Publisher, topic string) *Kafka {
	if topic == "" {
		topic = kafka.TopicAlerts
	}
	return &Kafka{publisher: p, topic: topic}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Send(ctx context.Context, a alert.Alert) alerts.DeliveryResult {
	if err := k.publisher.Publish(ctx, k.topic, a.Symbol, a); err != nil {
		return alerts.Failed(k.Name(), a, 1, errors.Tag(errors.ErrDeliveryFailed, err))
	}
	return alerts.Delivered(k.Name(), a, 1)
}
