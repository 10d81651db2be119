package testutil

import (
	"context"

	"github.com/billix/billix/internal/domain/events"
)

// InMemoryEventPublisher satisfies publisher.EventPublisher by writing
// straight into the backing event store, skipping the broker hop.
type InMemoryEventPublisher struct {
	store *InMemoryEventStore
}

func NewInMemoryEventPublisher(store *InMemoryEventStore) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{store: store}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event *events.Event) error {
	_, err := p.store.InsertEvent(ctx, event)
	return err
}
