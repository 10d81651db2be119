package service

import (
	"github.com/billix/billix/internal/cache"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/alert"
	"github.com/billix/billix/internal/domain/auth"
	"github.com/billix/billix/internal/domain/charge"
	"github.com/billix/billix/internal/domain/coupon"
	"github.com/billix/billix/internal/domain/creditnote"
	"github.com/billix/billix/internal/domain/customer"
	"github.com/billix/billix/internal/domain/dunning"
	"github.com/billix/billix/internal/domain/events"
	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/domain/lease"
	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/domain/paymentrequest"
	"github.com/billix/billix/internal/domain/plan"
	"github.com/billix/billix/internal/domain/subscription"
	"github.com/billix/billix/internal/domain/tax"
	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/domain/wallet"
	webhookDomain "github.com/billix/billix/internal/domain/webhook"
	"github.com/billix/billix/internal/httpclient"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/publisher"
	webhookPublisher "github.com/billix/billix/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	TenantRepo         tenant.Repository
	CustomerRepo       customer.Repository
	MetricRepo         metric.Repository
	PlanRepo           plan.Repository
	ChargeRepo         charge.Repository
	SubRepo            subscription.Repository
	EventRepo          events.Repository
	DailyUsageRepo     events.DailyUsageRepository
	InvoiceRepo        invoice.Repository
	WalletRepo         wallet.Repository
	CouponRepo         coupon.Repository
	TaxRepo            tax.Repository
	CreditNoteRepo     creditnote.Repository
	PaymentRequestRepo paymentrequest.Repository
	DunningRepo        dunning.Repository
	AlertRepo          alert.Repository
	WebhookRepo        webhookDomain.Repository
	AuthRepo           auth.Repository
	LeaseRepo          lease.Repository

	// Publishers
	EventPublisher   publisher.EventPublisher
	WebhookPublisher webhookPublisher.WebhookPublisher

	// http client
	Client httpclient.Client
}

// NewServiceParams assembles the common service dependencies for fx
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	tenantRepo tenant.Repository,
	customerRepo customer.Repository,
	metricRepo metric.Repository,
	planRepo plan.Repository,
	chargeRepo charge.Repository,
	subRepo subscription.Repository,
	eventRepo events.Repository,
	dailyUsageRepo events.DailyUsageRepository,
	invoiceRepo invoice.Repository,
	walletRepo wallet.Repository,
	couponRepo coupon.Repository,
	taxRepo tax.Repository,
	creditNoteRepo creditnote.Repository,
	paymentRequestRepo paymentrequest.Repository,
	dunningRepo dunning.Repository,
	alertRepo alert.Repository,
	webhookRepo webhookDomain.Repository,
	authRepo auth.Repository,
	leaseRepo lease.Repository,
	eventPublisher publisher.EventPublisher,
	webhookPublisher webhookPublisher.WebhookPublisher,
	client httpclient.Client,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		Cache:              cache,
		TenantRepo:         tenantRepo,
		CustomerRepo:       customerRepo,
		MetricRepo:         metricRepo,
		PlanRepo:           planRepo,
		ChargeRepo:         chargeRepo,
		SubRepo:            subRepo,
		EventRepo:          eventRepo,
		DailyUsageRepo:     dailyUsageRepo,
		InvoiceRepo:        invoiceRepo,
		WalletRepo:         walletRepo,
		CouponRepo:         couponRepo,
		TaxRepo:            taxRepo,
		CreditNoteRepo:     creditNoteRepo,
		PaymentRequestRepo: paymentRequestRepo,
		DunningRepo:        dunningRepo,
		AlertRepo:          alertRepo,
		WebhookRepo:        webhookRepo,
		AuthRepo:           authRepo,
		LeaseRepo:          leaseRepo,
		EventPublisher:     eventPublisher,
		WebhookPublisher:   webhookPublisher,
		Client:             client,
	}
}
