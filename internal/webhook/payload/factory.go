package payload

import (
	"fmt"

	"github.com/billix/billix/internal/types"
)

// PayloadBuilderFactory resolves the builder for an event name
type PayloadBuilderFactory interface {
	GetBuilder(eventName string) (PayloadBuilder, error)
}

type payloadBuilderFactory struct {
	builders map[string]func() PayloadBuilder
	services *Services
}

func NewPayloadBuilderFactory(services *Services) PayloadBuilderFactory {
	f := &payloadBuilderFactory{
		builders: make(map[string]func() PayloadBuilder),
		services: services,
	}

	invoiceBuilder := func() PayloadBuilder { return NewInvoicePayloadBuilder(f.services) }
	f.builders[types.WebhookEventInvoiceCreated] = invoiceBuilder
	f.builders[types.WebhookEventInvoiceFinalized] = invoiceBuilder
	f.builders[types.WebhookEventInvoicePaid] = invoiceBuilder
	f.builders[types.WebhookEventInvoiceVoided] = invoiceBuilder

	walletBuilder := func() PayloadBuilder { return NewWalletPayloadBuilder(f.services) }
	f.builders[types.WebhookEventWalletTerminated] = walletBuilder
	f.builders[types.WebhookEventWalletDepleted] = walletBuilder

	paymentRequestBuilder := func() PayloadBuilder { return NewPaymentRequestPayloadBuilder(f.services) }
	f.builders[types.WebhookEventPaymentRequestCreated] = paymentRequestBuilder
	f.builders[types.WebhookEventPaymentRequestFailed] = paymentRequestBuilder

	f.builders[types.WebhookEventUsageAlertTriggered] = func() PayloadBuilder {
		return NewAlertPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventSubscriptionActivated] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}

	return f
}

func (f *payloadBuilderFactory) GetBuilder(eventName string) (PayloadBuilder, error) {
	builderFn, ok := f.builders[eventName]
	if !ok {
		return nil, fmt.Errorf("no builder registered for event: %s", eventName)
	}
	return builderFn(), nil
}
