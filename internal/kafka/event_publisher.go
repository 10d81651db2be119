package kafka

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/events"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
)

// EventPublisher pushes accepted usage events onto the intake topic
type EventPublisher struct {
	producer *Producer
	logger   *logger.Logger
	config   *config.KafkaConfig
}

func NewEventPublisher(producer *Producer, cfg *config.Configuration, logger *logger.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		logger:   logger,
		config:   &cfg.Kafka,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal event").
			Mark(ierr.ErrValidation)
	}

	if event.ID == "" {
		event.ID = watermill.NewUUID()
	}

	p.logger.Debugw("publishing event",
		"event_id", event.ID,
		"code", event.Code,
		"tenant_id", event.TenantID,
	)

	msg := message.NewMessage(event.ID, payload)
	// Tenant travels in metadata so consumers can rebuild request context
	msg.Metadata.Set("tenant_id", event.TenantID)

	if err := p.producer.Publish(p.config.Topic, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish event").
			Mark(ierr.ErrSystem)
	}
	return nil
}
