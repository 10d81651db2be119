package payload

import (
	"context"
	"encoding/json"

	"github.com/billix/billix/internal/types"
)

type PaymentRequestPayloadBuilder struct {
	services *Services
}

func NewPaymentRequestPayloadBuilder(services *Services) PayloadBuilder {
	return &PaymentRequestPayloadBuilder{services: services}
}

func (b *PaymentRequestPayloadBuilder) BuildPayload(ctx context.Context, event *types.WebhookEvent) (json.RawMessage, error) {
	pr, err := b.services.DunningService.GetPaymentRequest(ctx, event.ObjectID)
	if err != nil {
		return nil, err
	}
	return wrap(event, pr)
}
