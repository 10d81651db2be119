package api

import (
	v1 "github.com/billix/billix/internal/api/v1"
	"github.com/billix/billix/internal/cache"
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/rest/middleware"
	"github.com/billix/billix/internal/service"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Events       *v1.EventsHandler
	Customer     *v1.CustomerHandler
	Metric       *v1.MetricHandler
	Plan         *v1.PlanHandler
	Subscription *v1.SubscriptionHandler
	Invoice      *v1.InvoiceHandler
	Wallet       *v1.WalletHandler
	Coupon       *v1.CouponHandler
	Tax          *v1.TaxHandler
	CreditNote   *v1.CreditNoteHandler
	Dunning      *v1.DunningHandler
	Alert        *v1.AlertHandler
	Webhook      *v1.WebhookHandler
	Auth         *v1.AuthHandler
	Tenant       *v1.TenantHandler
	Portal       *v1.PortalHandler
}

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	authService service.AuthService,
	cacheStore cache.Cache,
	log *logger.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.AuthenticateMiddleware(cfg, authService, log))
	v1Group.Use(middleware.IdempotencyMiddleware(cacheStore, log))
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	events := router.Group("/events")
	{
		events.POST("", handlers.Events.IngestEvent)
		events.POST("/batch", handlers.Events.IngestBatch)
		events.POST("/query", handlers.Events.GetEvents)
		events.GET("/usage", handlers.Events.GetUsage)
		events.GET("/usage/metric", handlers.Events.GetUsageByMetric)
	}

	customers := router.Group("/customers")
	{
		customers.POST("", handlers.Customer.CreateCustomer)
		customers.GET("", handlers.Customer.ListCustomers)
		customers.GET("/:id", handlers.Customer.GetCustomer)
		customers.GET("/external/:external_id", handlers.Customer.GetCustomerByExternalID)
		customers.PUT("/:id", handlers.Customer.UpdateCustomer)
		customers.DELETE("/:id", handlers.Customer.DeleteCustomer)
	}

	metrics := router.Group("/metrics")
	{
		metrics.POST("", handlers.Metric.CreateMetric)
		metrics.GET("", handlers.Metric.ListMetrics)
		metrics.GET("/:id", handlers.Metric.GetMetric)
		metrics.PUT("/:id", handlers.Metric.UpdateMetric)
		metrics.DELETE("/:id", handlers.Metric.DeleteMetric)
	}

	plans := router.Group("/plans")
	{
		plans.POST("", handlers.Plan.CreatePlan)
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.PUT("/:id", handlers.Plan.UpdatePlan)
		plans.DELETE("/:id", handlers.Plan.DeletePlan)
		plans.POST("/:id/charges", handlers.Plan.AddCharge)
		plans.GET("/:id/charges", handlers.Plan.GetCharges)
	}
	router.DELETE("/charges/:id", handlers.Plan.RemoveCharge)

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
		subscriptions.POST("/:id/activate", handlers.Subscription.ActivateSubscription)
		subscriptions.POST("/:id/pause", handlers.Subscription.PauseSubscription)
		subscriptions.POST("/:id/resume", handlers.Subscription.ResumeSubscription)
		subscriptions.POST("/:id/cancel", handlers.Subscription.CancelSubscription)
		subscriptions.POST("/:id/terminate", handlers.Subscription.TerminateSubscription)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateOneOffInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/preview", handlers.Invoice.PreviewInvoice)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.POST("/:id/finalize", handlers.Invoice.FinalizeInvoice)
		invoices.POST("/:id/pay", handlers.Invoice.PayInvoice)
		invoices.POST("/:id/void", handlers.Invoice.VoidInvoice)
		invoices.POST("/:id/settlements", handlers.Invoice.RecordSettlement)
	}

	wallets := router.Group("/wallets")
	{
		wallets.POST("", handlers.Wallet.CreateWallet)
		wallets.GET("/:id", handlers.Wallet.GetWallet)
		wallets.POST("/:id/top_up", handlers.Wallet.TopUpWallet)
		wallets.POST("/:id/terminate", handlers.Wallet.TerminateWallet)
		wallets.GET("/:id/transactions", handlers.Wallet.ListTransactions)
	}

	coupons := router.Group("/coupons")
	{
		coupons.POST("", handlers.Coupon.CreateCoupon)
		coupons.GET("/:id", handlers.Coupon.GetCoupon)
	}
	appliedCoupons := router.Group("/applied_coupons")
	{
		appliedCoupons.POST("", handlers.Coupon.ApplyCoupon)
		appliedCoupons.GET("", handlers.Coupon.ListActiveByCustomer)
		appliedCoupons.DELETE("/:id", handlers.Coupon.TerminateAppliedCoupon)
	}

	taxes := router.Group("/taxes")
	{
		taxes.POST("", handlers.Tax.CreateTax)
		taxes.GET("/:id", handlers.Tax.GetTax)
	}
	appliedTaxes := router.Group("/applied_taxes")
	{
		appliedTaxes.POST("", handlers.Tax.ApplyTax)
		appliedTaxes.GET("", handlers.Tax.ListApplied)
		appliedTaxes.DELETE("/:id", handlers.Tax.RemoveAppliedTax)
	}

	creditNotes := router.Group("/credit_notes")
	{
		creditNotes.POST("", handlers.CreditNote.CreateCreditNote)
		creditNotes.POST("/offsets", handlers.CreditNote.CreateOffset)
		creditNotes.GET("", handlers.CreditNote.ListByInvoice)
		creditNotes.GET("/:id", handlers.CreditNote.GetCreditNote)
		creditNotes.POST("/:id/finalize", handlers.CreditNote.FinalizeCreditNote)
	}

	dunning := router.Group("/dunning_campaigns")
	{
		dunning.POST("", handlers.Dunning.CreateCampaign)
		dunning.GET("/:id", handlers.Dunning.GetCampaign)
	}
	paymentRequests := router.Group("/payment_requests")
	{
		paymentRequests.GET("/:id", handlers.Dunning.GetPaymentRequest)
		paymentRequests.POST("/:id/retry", handlers.Dunning.RetryPaymentRequest)
	}

	alerts := router.Group("/usage_alerts")
	{
		alerts.POST("", handlers.Alert.CreateAlert)
		alerts.GET("/:id", handlers.Alert.GetAlert)
		alerts.DELETE("/:id", handlers.Alert.DeactivateAlert)
		alerts.GET("/:id/triggers", handlers.Alert.ListTriggers)
	}

	endpoints := router.Group("/webhook_endpoints")
	{
		endpoints.POST("", handlers.Webhook.CreateEndpoint)
		endpoints.GET("", handlers.Webhook.ListEndpoints)
		endpoints.GET("/:id", handlers.Webhook.GetEndpoint)
		endpoints.PUT("/:id", handlers.Webhook.UpdateEndpoint)
		endpoints.DELETE("/:id", handlers.Webhook.DisableEndpoint)
	}
	router.GET("/webhooks/:id/attempts", handlers.Webhook.ListAttempts)

	apiKeys := router.Group("/api_keys")
	{
		apiKeys.POST("", handlers.Auth.CreateAPIKey)
		apiKeys.GET("", handlers.Auth.ListAPIKeys)
		apiKeys.DELETE("/:id", handlers.Auth.RevokeAPIKey)
	}
	router.POST("/portal_tokens", handlers.Auth.IssuePortalToken)

	tenants := router.Group("/tenants")
	{
		tenants.POST("", handlers.Tenant.CreateTenant)
		tenants.GET("/:id", handlers.Tenant.GetTenant)
		tenants.PUT("/:id", handlers.Tenant.UpdateTenant)
	}

	portal := router.Group("/portal")
	portal.Use(middleware.PortalOnlyMiddleware)
	{
		portal.GET("/customer", handlers.Portal.GetCustomer)
		portal.GET("/invoices", handlers.Portal.ListInvoices)
	}
}
