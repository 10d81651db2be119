package webhook

import (
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/kafka"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/pubsub"
	kafkaPubSub "github.com/billix/billix/internal/pubsub/kafka"
	"github.com/billix/billix/internal/pubsub/memory"
	"github.com/billix/billix/internal/service"
	"github.com/billix/billix/internal/types"
	"github.com/billix/billix/internal/webhook/handler"
	"github.com/billix/billix/internal/webhook/payload"
	"github.com/billix/billix/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		publisher.NewPublisher,
		handler.NewHandler,
		providePayloadBuilderFactory,
		NewWebhookService,
	),
)

func providePayloadBuilderFactory(
	invoiceService service.InvoiceService,
	walletService service.WalletService,
	subscriptionService service.SubscriptionService,
	dunningService service.DunningService,
	alertService service.AlertService,
) payload.PayloadBuilderFactory {
	services := payload.NewServices(
		invoiceService,
		walletService,
		subscriptionService,
		dunningService,
		alertService,
	)
	return payload.NewPayloadBuilderFactory(services)
}

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
	producer *kafka.Producer,
	consumer *kafka.Consumer,
) pubsub.PubSub {
	switch cfg.Webhook.PubSub {
	case types.KafkaPubSub:
		return kafkaPubSub.NewPubSub(cfg, logger, producer, consumer)
	default:
		return memory.NewPubSub(cfg, logger)
	}
}
