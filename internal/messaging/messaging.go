package messaging

import (
	"context"
	"fmt"

	"storefront-fulfillment/internal/config"
)

// Publisher sends one JSON-encoded event, keyed for partitioning where the broker supports it.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
	Close() error
}

// NewPublisher picks the broker named in cfg. "none" yields a publisher that drops events.
func NewPublisher(cfg config.Events) (Publisher, error) {
	switch cfg.Broker {
	case "", "none":
		return NopPublisher{}, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka broker selected but EVENTS_KAFKA_BROKERS is empty")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers), nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
