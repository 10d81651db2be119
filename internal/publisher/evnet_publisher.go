package publisher

import (
	"context"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/events"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/kafka"
	"github.com/billix/billix/internal/logger"
)

// EventPublisher pushes accepted usage events onto the async intake
// pipeline. Ingestion acknowledges the caller once the event is durably
// published; consumers persist it.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

type eventPublisher struct {
	kafkaPublisher *kafka.EventPublisher
	logger         *logger.Logger
}

func NewEventPublisher(
	cfg *config.Configuration,
	logger *logger.Logger,
	kafkaProducer *kafka.Producer,
) (EventPublisher, error) {
	publisher := &eventPublisher{logger: logger}

	if cfg.Kafka.Enabled {
		if kafkaProducer == nil {
			return nil, ierr.NewError("kafka producer is not initialized").
				WithHint("Kafka is enabled but no producer was constructed").
				Mark(ierr.ErrSystem)
		}
		publisher.kafkaPublisher = kafka.NewEventPublisher(kafkaProducer, cfg, logger)
	}

	return publisher, nil
}

func (p *eventPublisher) Publish(ctx context.Context, event *events.Event) error {
	// Without a broker the synchronous ingestion path already persisted
	// the event; nothing to fan out
	if p.kafkaPublisher == nil {
		return nil
	}
	return p.kafkaPublisher.Publish(ctx, event)
}
