package testutil

import (
	"context"
	"time"

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
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/publisher"
	"github.com/billix/billix/internal/types"
	webhookPublisher "github.com/billix/billix/internal/webhook/publisher"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
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
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	stores           Stores
	publisher        publisher.EventPublisher
	webhookPublisher webhookPublisher.WebhookPublisher
	db               postgres.IClient
	cache            cache.Cache
	logger           *logger.Logger
	config           *config.Configuration
	now              time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := &config.Configuration{
		Logging: config.LoggingConfig{
			Level: types.LogLevelInfo,
		},
		Webhook: config.WebhookConfig{
			Enabled:        true,
			Topic:          "webhooks",
			PubSub:         types.MemoryPubSub,
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     time.Minute,
			Timeout:        10 * time.Second,
		},
	}
	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.cache = cache.NewInMemoryCache(s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	eventStore := NewInMemoryEventStore()
	s.stores = Stores{
		TenantRepo:         NewInMemoryTenantStore(),
		CustomerRepo:       NewInMemoryCustomerStore(),
		MetricRepo:         NewInMemoryMetricStore(),
		PlanRepo:           NewInMemoryPlanStore(),
		ChargeRepo:         NewInMemoryChargeStore(),
		SubRepo:            NewInMemorySubscriptionStore(),
		EventRepo:          eventStore,
		DailyUsageRepo:     NewInMemoryDailyUsageStore(),
		InvoiceRepo:        NewInMemoryInvoiceStore(),
		WalletRepo:         NewInMemoryWalletStore(),
		CouponRepo:         NewInMemoryCouponStore(),
		TaxRepo:            NewInMemoryTaxStore(),
		CreditNoteRepo:     NewInMemoryCreditNoteStore(),
		PaymentRequestRepo: NewInMemoryPaymentRequestStore(),
		DunningRepo:        NewInMemoryDunningStore(),
		AlertRepo:          NewInMemoryAlertStore(),
		WebhookRepo:        NewInMemoryWebhookStore(),
		AuthRepo:           NewInMemoryAuthStore(),
		LeaseRepo:          NewInMemoryLeaseStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.publisher = NewInMemoryEventPublisher(eventStore)

	pubSub := NewInMemoryPubSub(s.config, s.logger)
	wp, err := webhookPublisher.NewPublisher(pubSub, s.config, s.logger)
	if err != nil {
		s.T().Fatalf("failed to create webhook publisher: %v", err)
	}
	s.webhookPublisher = wp
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.TenantRepo.(*InMemoryTenantStore).Clear()
	s.stores.CustomerRepo.(*InMemoryCustomerStore).Clear()
	s.stores.MetricRepo.(*InMemoryMetricStore).Clear()
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.ChargeRepo.(*InMemoryChargeStore).Clear()
	s.stores.SubRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.EventRepo.(*InMemoryEventStore).Clear()
	s.stores.DailyUsageRepo.(*InMemoryDailyUsageStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.WalletRepo.(*InMemoryWalletStore).Clear()
	s.stores.CouponRepo.(*InMemoryCouponStore).Clear()
	s.stores.TaxRepo.(*InMemoryTaxStore).Clear()
	s.stores.CreditNoteRepo.(*InMemoryCreditNoteStore).Clear()
	s.stores.PaymentRequestRepo.(*InMemoryPaymentRequestStore).Clear()
	s.stores.DunningRepo.(*InMemoryDunningStore).Clear()
	s.stores.AlertRepo.(*InMemoryAlertStore).Clear()
	s.stores.WebhookRepo.(*InMemoryWebhookStore).Clear()
	s.stores.AuthRepo.(*InMemoryAuthStore).Clear()
	s.stores.LeaseRepo.(*InMemoryLeaseStore).Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the test event publisher
func (s *BaseServiceTestSuite) GetPublisher() publisher.EventPublisher {
	return s.publisher
}

// GetWebhookPublisher returns the test webhook publisher
func (s *BaseServiceTestSuite) GetWebhookPublisher() webhookPublisher.WebhookPublisher {
	return s.webhookPublisher
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
