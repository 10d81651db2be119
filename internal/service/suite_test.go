package service

import (
	"github.com/billix/billix/internal/testutil"
)

// newServiceParams wires the in-memory stores of a suite into ServiceParams
func newServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		Cache:              s.GetCache(),
		TenantRepo:         stores.TenantRepo,
		CustomerRepo:       stores.CustomerRepo,
		MetricRepo:         stores.MetricRepo,
		PlanRepo:           stores.PlanRepo,
		ChargeRepo:         stores.ChargeRepo,
		SubRepo:            stores.SubRepo,
		EventRepo:          stores.EventRepo,
		DailyUsageRepo:     stores.DailyUsageRepo,
		InvoiceRepo:        stores.InvoiceRepo,
		WalletRepo:         stores.WalletRepo,
		CouponRepo:         stores.CouponRepo,
		TaxRepo:            stores.TaxRepo,
		CreditNoteRepo:     stores.CreditNoteRepo,
		PaymentRequestRepo: stores.PaymentRequestRepo,
		DunningRepo:        stores.DunningRepo,
		AlertRepo:          stores.AlertRepo,
		WebhookRepo:        stores.WebhookRepo,
		AuthRepo:           stores.AuthRepo,
		LeaseRepo:          stores.LeaseRepo,
		EventPublisher:     s.GetPublisher(),
		WebhookPublisher:   s.GetWebhookPublisher(),
	}
}
