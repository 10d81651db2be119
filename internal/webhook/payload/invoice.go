package payload

import (
	"context"
	"encoding/json"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/types"
)

type InvoicePayloadBuilder struct {
	services *Services
}

func NewInvoicePayloadBuilder(services *Services) PayloadBuilder {
	return &InvoicePayloadBuilder{services: services}
}

func (b *InvoicePayloadBuilder) BuildPayload(ctx context.Context, event *types.WebhookEvent) (json.RawMessage, error) {
	inv, err := b.services.InvoiceService.GetInvoice(ctx, event.ObjectID)
	if err != nil {
		return nil, err
	}
	return wrap(event, dto.NewInvoiceResponse(inv))
}
