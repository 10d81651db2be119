package repository

import (
	"github.com/billix/billix/internal/clickhouse"
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
	chRepo "github.com/billix/billix/internal/repository/clickhouse"
	pgRepo "github.com/billix/billix/internal/repository/postgres"
)

func NewTenantRepository(db postgres.IClient, logger *logger.Logger) tenant.Repository {
	return pgRepo.NewTenantRepository(db, logger)
}

func NewCustomerRepository(db postgres.IClient, logger *logger.Logger) customer.Repository {
	return pgRepo.NewCustomerRepository(db, logger)
}

func NewMetricRepository(db postgres.IClient, logger *logger.Logger) metric.Repository {
	return pgRepo.NewMetricRepository(db, logger)
}

func NewPlanRepository(db postgres.IClient, logger *logger.Logger) plan.Repository {
	return pgRepo.NewPlanRepository(db, logger)
}

func NewChargeRepository(db postgres.IClient, logger *logger.Logger) charge.Repository {
	return pgRepo.NewChargeRepository(db, logger)
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return pgRepo.NewSubscriptionRepository(db, logger)
}

// NewEventRepository prefers the columnar mirror for event storage and
// aggregation when it is configured
func NewEventRepository(
	cfg *config.Configuration,
	db postgres.IClient,
	store *clickhouse.Store,
	logger *logger.Logger,
) events.Repository {
	if cfg.ClickHouse.Enabled && store != nil {
		return chRepo.NewEventRepository(store, logger)
	}
	return pgRepo.NewEventRepository(db, logger)
}

func NewDailyUsageRepository(db postgres.IClient, logger *logger.Logger) events.DailyUsageRepository {
	return pgRepo.NewDailyUsageRepository(db, logger)
}

func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return pgRepo.NewInvoiceRepository(db, logger)
}

func NewWalletRepository(db postgres.IClient, logger *logger.Logger) wallet.Repository {
	return pgRepo.NewWalletRepository(db, logger)
}

func NewCouponRepository(db postgres.IClient, logger *logger.Logger) coupon.Repository {
	return pgRepo.NewCouponRepository(db, logger)
}

func NewTaxRepository(db postgres.IClient, logger *logger.Logger) tax.Repository {
	return pgRepo.NewTaxRepository(db, logger)
}

func NewCreditNoteRepository(db postgres.IClient, logger *logger.Logger) creditnote.Repository {
	return pgRepo.NewCreditNoteRepository(db, logger)
}

func NewPaymentRequestRepository(db postgres.IClient, logger *logger.Logger) paymentrequest.Repository {
	return pgRepo.NewPaymentRequestRepository(db, logger)
}

func NewDunningRepository(db postgres.IClient, logger *logger.Logger) dunning.Repository {
	return pgRepo.NewDunningRepository(db, logger)
}

func NewAlertRepository(db postgres.IClient, logger *logger.Logger) alert.Repository {
	return pgRepo.NewAlertRepository(db, logger)
}

func NewWebhookRepository(db postgres.IClient, logger *logger.Logger) webhookDomain.Repository {
	return pgRepo.NewWebhookRepository(db, logger)
}

func NewAuthRepository(db postgres.IClient, logger *logger.Logger) auth.Repository {
	return pgRepo.NewAuthRepository(db, logger)
}

func NewLeaseRepository(db postgres.IClient, logger *logger.Logger) lease.Repository {
	return pgRepo.NewLeaseRepository(db, logger)
}
