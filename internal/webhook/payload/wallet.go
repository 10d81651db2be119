package payload

import (
	"context"
	"encoding/json"

	"github.com/billix/billix/internal/api/dto"
	"github.com/billix/billix/internal/types"
)

type WalletPayloadBuilder struct {
	services *Services
}

func NewWalletPayloadBuilder(services *Services) PayloadBuilder {
	return &WalletPayloadBuilder{services: services}
}

func (b *WalletPayloadBuilder) BuildPayload(ctx context.Context, event *types.WebhookEvent) (json.RawMessage, error) {
	w, err := b.services.WalletService.GetWallet(ctx, event.ObjectID)
	if err != nil {
		return nil, err
	}
	return wrap(event, dto.NewWalletResponse(w))
}
