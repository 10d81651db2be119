package payload

import "github.com/billix/billix/internal/service"

// Services carries the read-side services payload builders hydrate
// objects with
type Services struct {
	InvoiceService      service.InvoiceService
	WalletService       service.WalletService
	SubscriptionService service.SubscriptionService
	DunningService      service.DunningService
	AlertService        service.AlertService
}

func NewServices(
	invoiceService service.InvoiceService,
	walletService service.WalletService,
	subscriptionService service.SubscriptionService,
	dunningService service.DunningService,
	alertService service.AlertService,
) *Services {
	return &Services{
		InvoiceService:      invoiceService,
		WalletService:       walletService,
		SubscriptionService: subscriptionService,
		DunningService:      dunningService,
		AlertService:        alertService,
	}
}
