package payload

import (
	"context"
	"encoding/json"

	"github.com/billix/billix/internal/types"
)

type SubscriptionPayloadBuilder struct {
	services *Services
}

func NewSubscriptionPayloadBuilder(services *Services) PayloadBuilder {
	return &SubscriptionPayloadBuilder{services: services}
}

func (b *SubscriptionPayloadBuilder) BuildPayload(ctx context.Context, event *types.WebhookEvent) (json.RawMessage, error) {
	sub, err := b.services.SubscriptionService.GetSubscription(ctx, event.ObjectID)
	if err != nil {
		return nil, err
	}
	return wrap(event, sub)
}
