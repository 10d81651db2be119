package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/kafka"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/pubsub"
)

// PubSub adapts the kafka producer/consumer pair to the pubsub interfaces
type PubSub struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	config   *config.Configuration
	logger   *logger.Logger
}

func NewPubSub(
	config *config.Configuration,
	logger *logger.Logger,
	producer *kafka.Producer,
	consumer *kafka.Consumer,
) pubsub.PubSub {
	return &PubSub{
		producer: producer,
		consumer: consumer,
		config:   config,
		logger:   logger,
	}
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	return p.producer.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.consumer.Subscribe(topic)
}

func (p *PubSub) Close() error {
	if err := p.producer.Close(); err != nil {
		p.logger.Errorw("failed to close producer", "error", err)
	}
	return p.consumer.Close()
}
