package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/billix/billix/internal/api"
	v1 "github.com/billix/billix/internal/api/v1"
	"github.com/billix/billix/internal/cache"
	"github.com/billix/billix/internal/clickhouse"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/events"
	webhookDomain "github.com/billix/billix/internal/domain/webhook"
	"github.com/billix/billix/internal/httpclient"
	"github.com/billix/billix/internal/kafka"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/payment"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/publisher"
	pubsubRouter "github.com/billix/billix/internal/pubsub/router"
	"github.com/billix/billix/internal/repository"
	"github.com/billix/billix/internal/scheduler"
	"github.com/billix/billix/internal/sentry"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/validator"
	"github.com/billix/billix/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// All timestamps are stored and compared in UTC
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.Initialize,

			// Postgres
			postgres.NewDB,
			postgres.NewClient,

			// ClickHouse (optional columnar event mirror)
			provideClickHouseStore,

			// Producers and consumers
			provideKafkaProducer,
			provideKafkaConsumer,

			// Event publisher
			publisher.NewEventPublisher,

			// HTTP client
			httpclient.NewDefaultClient,

			// Payment provider
			payment.NewProvider,

			// Repositories
			repository.NewTenantRepository,
			repository.NewCustomerRepository,
			repository.NewMetricRepository,
			repository.NewPlanRepository,
			repository.NewChargeRepository,
			repository.NewSubscriptionRepository,
			repository.NewEventRepository,
			repository.NewDailyUsageRepository,
			repository.NewInvoiceRepository,
			repository.NewWalletRepository,
			repository.NewCouponRepository,
			repository.NewTaxRepository,
			repository.NewCreditNoteRepository,
			repository.NewPaymentRequestRepository,
			repository.NewDunningRepository,
			repository.NewAlertRepository,
			repository.NewWebhookRepository,
			repository.NewAuthRepository,
			repository.NewLeaseRepository,

			// PubSub router
			pubsubRouter.NewRouter,
		),
	)

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			// Core services
			service.NewTenantService,
			service.NewAuthService,

			// Business services
			service.NewCustomerService,
			service.NewMetricService,
			service.NewPlanService,
			service.NewSubscriptionService,
			service.NewEventService,
			service.NewUsageService,
			service.NewRatingService,
			service.NewInvoiceService,
			service.NewWalletService,
			service.NewCouponService,
			service.NewTaxService,
			service.NewCreditNoteService,
			service.NewDunningService,
			service.NewAlertService,

			// Scheduler
			scheduler.New,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideClickHouseStore(cfg *config.Configuration) (*clickhouse.Store, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	return clickhouse.NewStore(cfg)
}

func provideKafkaProducer(cfg *config.Configuration) (*kafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	return kafka.NewProducer(cfg)
}

func provideKafkaConsumer(cfg *config.Configuration) (*kafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	return kafka.NewConsumer(cfg)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	eventService service.EventService,
	usageService service.UsageService,
	customerService service.CustomerService,
	metricService service.MetricService,
	planService service.PlanService,
	subscriptionService service.SubscriptionService,
	invoiceService service.InvoiceService,
	walletService service.WalletService,
	couponService service.CouponService,
	taxService service.TaxService,
	creditNoteService service.CreditNoteService,
	dunningService service.DunningService,
	alertService service.AlertService,
	authService service.AuthService,
	tenantService service.TenantService,
	webhookRepo webhookDomain.Repository,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(),
		Events:       v1.NewEventsHandler(eventService, usageService, logger),
		Customer:     v1.NewCustomerHandler(customerService, logger),
		Metric:       v1.NewMetricHandler(metricService, logger),
		Plan:         v1.NewPlanHandler(planService, logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Invoice:      v1.NewInvoiceHandler(invoiceService, subscriptionService, logger),
		Wallet:       v1.NewWalletHandler(walletService, logger),
		Coupon:       v1.NewCouponHandler(couponService, logger),
		Tax:          v1.NewTaxHandler(taxService, logger),
		CreditNote:   v1.NewCreditNoteHandler(creditNoteService, logger),
		Dunning:      v1.NewDunningHandler(dunningService, logger),
		Alert:        v1.NewAlertHandler(alertService, logger),
		Webhook:      v1.NewWebhookHandler(webhookRepo, logger),
		Auth:         v1.NewAuthHandler(authService, logger),
		Tenant:       v1.NewTenantHandler(tenantService, logger),
		Portal:       v1.NewPortalHandler(customerService, invoiceService, logger),
	}
}

func provideRouter(
	handlers api.Handlers,
	cfg *config.Configuration,
	authService service.AuthService,
	cacheStore cache.Cache,
	logger *logger.Logger,
) *gin.Engine {
	return api.NewRouter(handlers, cfg, authService, cacheStore, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	consumer *kafka.Consumer,
	eventRepo events.Repository,
	webhookService *webhook.WebhookService,
	router *pubsubRouter.Router,
	sched *scheduler.Scheduler,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookService, log)
		startScheduler(lc, sched, log)
		if consumer != nil {
			startConsumer(lc, consumer, eventRepo, cfg, log)
		}
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookService, log)
	case types.ModeConsumer:
		if consumer == nil {
			log.Fatal("Kafka consumer required for consumer mode")
		}
		startConsumer(lc, consumer, eventRepo, cfg, log)
	case types.ModeScheduler:
		startMessageRouter(lc, router, webhookService, log)
		startScheduler(lc, sched, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookService *webhook.WebhookService,
	log *logger.Logger,
) {
	// Handlers must be registered before the router starts
	webhookService.Register(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting message router")
			go func() {
				if err := router.Run(); err != nil {
					log.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping message router")
			if err := webhookService.Stop(); err != nil {
				log.Errorw("failed to stop webhook service", "error", err)
			}
			return router.Close()
		},
	})
}

func startScheduler(lc fx.Lifecycle, sched *scheduler.Scheduler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting scheduler")
			sched.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping scheduler")
			sched.Stop()
			return nil
		},
	})
}

func startConsumer(
	lc fx.Lifecycle,
	consumer *kafka.Consumer,
	eventRepo events.Repository,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go consumeMessages(consumer, eventRepo, cfg, log)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down consumer")
			return consumer.Close()
		},
	})
}

func consumeMessages(
	consumer *kafka.Consumer,
	eventRepo events.Repository,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	messages, err := consumer.Subscribe(cfg.Kafka.Topic)
	if err != nil {
		log.Fatalf("Failed to subscribe to topic %s: %v", cfg.Kafka.Topic, err)
	}

	for msg := range messages {
		var event events.Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			log.Errorw("failed to unmarshal event",
				"error", err,
				"payload", string(msg.Payload),
			)
			// Malformed payloads never become valid; drop them
			msg.Ack()
			continue
		}

		inserted, err := eventRepo.InsertEvent(context.Background(), &event)
		if err != nil {
			log.Errorw("failed to insert event",
				"error", err,
				"event_id", event.ID,
			)
			msg.Nack()
			continue
		}
		if !inserted {
			log.Debugw("skipping duplicate event",
				"event_id", event.ID,
				"transaction_id", event.TransactionID,
			)
		}
		msg.Ack()
	}
}
