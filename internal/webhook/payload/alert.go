package payload

import (
	"context"
	"encoding/json"

	"github.com/billix/billix/internal/types"
)

type AlertPayloadBuilder struct {
	services *Services
}

func NewAlertPayloadBuilder(services *Services) PayloadBuilder {
	return &AlertPayloadBuilder{services: services}
}

func (b *AlertPayloadBuilder) BuildPayload(ctx context.Context, event *types.WebhookEvent) (json.RawMessage, error) {
	a, err := b.services.AlertService.GetAlert(ctx, event.ObjectID)
	if err != nil {
		return nil, err
	}
	return wrap(event, a)
}
