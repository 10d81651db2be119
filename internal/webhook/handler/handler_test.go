package handler

import (
	"errors"
	"testing"
	"time"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/tenant"
	"github.com/billix/billix/internal/domain/webhook"
	"github.com/billix/billix/internal/httpclient"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/sentry"
	"github.com/billix/billix/internal/testutil"
	"github.com/billix/billix/internal/types"
	"github.com/stretchr/testify/suite"
)

type HandlerSuite struct {
	suite.Suite
	handler     *handler
	client      *testutil.MockHTTPClient
	webhookRepo *testutil.InMemoryWebhookStore
	tenantRepo  *testutil.InMemoryTenantStore
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	cfg := &config.Configuration{
		Logging: config.LoggingConfig{Level: types.LogLevelInfo},
		Webhook: config.WebhookConfig{
			Enabled:        true,
			Topic:          "webhooks",
			MaxRetries:     3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Minute,
			Timeout:        5 * time.Second,
		},
	}
	log, err := logger.NewLogger(cfg)
	s.Require().NoError(err)

	s.client = testutil.NewMockHTTPClient()
	s.webhookRepo = testutil.NewInMemoryWebhookStore()
	s.tenantRepo = testutil.NewInMemoryTenantStore()

	s.handler = &handler{
		config:      &cfg.Webhook,
		client:      s.client,
		logger:      log,
		sentry:      sentry.NewSentryService(cfg, log),
		webhookRepo: s.webhookRepo,
		tenantRepo:  s.tenantRepo,
	}
}

func (s *HandlerSuite) seedEndpoint(secret string) *webhook.Endpoint {
	ep := &webhook.Endpoint{
		ID:             "ep-1",
		URL:            "https://hooks.example.com/billing",
		Secret:         secret,
		EndpointStatus: types.WebhookEndpointStatusActive,
		BaseModel:      types.GetDefaultBaseModel(testutil.SetupContext()),
	}
	s.Require().NoError(s.webhookRepo.CreateEndpoint(testutil.SetupContext(), ep))
	return ep
}

func (s *HandlerSuite) seedWebhook(ep *webhook.Endpoint) *webhook.Webhook {
	row := &webhook.Webhook{
		ID:            "wh-1",
		EndpointID:    ep.ID,
		EventName:     types.WebhookEventInvoiceCreated,
		ObjectType:    "invoice",
		ObjectID:      "inv-1",
		Payload:       []byte(`{"invoice_id":"inv-1"}`),
		WebhookStatus: types.WebhookStatusPending,
		BaseModel:     types.GetDefaultBaseModel(testutil.SetupContext()),
	}
	s.Require().NoError(s.webhookRepo.CreateWebhook(testutil.SetupContext(), row))
	return row
}

func (s *HandlerSuite) TestSign() {
	// HMAC-SHA256 test vector from RFC 4231, case 2
	got := Sign([]byte("what do ya want for nothing?"), "Jefe")
	s.Equal("5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func (s *HandlerSuite) TestNextDelayDoubles() {
	s.Equal(2*time.Second, s.handler.nextDelay(0))
	s.Equal(4*time.Second, s.handler.nextDelay(1))
	s.Equal(8*time.Second, s.handler.nextDelay(2))
}

func (s *HandlerSuite) TestNextDelayCapped() {
	s.Equal(30*time.Minute, s.handler.nextDelay(20))
}

func (s *HandlerSuite) TestDeliverSignsAndSucceeds() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	s.NoError(s.handler.deliver(ctx, row, ep))

	requests := s.client.Requests()
	s.Require().Len(requests, 1)
	s.Equal("https://hooks.example.com/billing", requests[0].URL)
	s.Equal("sha256="+Sign(row.Payload, "whsec_test"), requests[0].Headers["X-Signature"])
	s.Equal(row.ID, requests[0].Headers["X-Webhook-ID"])
	s.Equal(types.WebhookEventInvoiceCreated, requests[0].Headers["X-Event-Name"])

	s.Equal(types.WebhookStatusSuccess, row.WebhookStatus)
	s.Nil(row.NextRetryAt)

	attempts, err := s.webhookRepo.ListAttempts(ctx, row.ID)
	s.NoError(err)
	s.Require().Len(attempts, 1)
	s.Equal(1, attempts[0].AttemptNumber)
	s.Equal(200, attempts[0].HTTPStatus)
	s.Empty(attempts[0].Error)
}

func (s *HandlerSuite) TestDeliverFallsBackToTenantSecret() {
	ctx := testutil.SetupContext()
	s.Require().NoError(s.tenantRepo.Create(ctx, &tenant.Tenant{
		ID:            types.DefaultTenantID,
		Name:          "Acme",
		WebhookSecret: "tenant_secret",
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}))
	ep := s.seedEndpoint("")
	row := s.seedWebhook(ep)

	s.NoError(s.handler.deliver(ctx, row, ep))

	requests := s.client.Requests()
	s.Require().Len(requests, 1)
	s.Equal("sha256="+Sign(row.Payload, "tenant_secret"), requests[0].Headers["X-Signature"])
}

func (s *HandlerSuite) TestDeliverFailureSchedulesBackoff() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	s.client.QueueResponse(&httpclient.Response{StatusCode: 500, Body: []byte("boom")}, nil)
	s.NoError(s.handler.deliver(ctx, row, ep))

	s.Equal(types.WebhookStatusPending, row.WebhookStatus)
	s.Equal(1, row.Retries)
	s.Require().NotNil(row.NextRetryAt)
	s.WithinDuration(time.Now().UTC().Add(2*time.Second), *row.NextRetryAt, time.Minute)

	attempts, err := s.webhookRepo.ListAttempts(ctx, row.ID)
	s.NoError(err)
	s.Require().Len(attempts, 1)
	s.Equal(500, attempts[0].HTTPStatus)
	s.Contains(attempts[0].Error, "500")
}

func (s *HandlerSuite) TestDeliverNetworkErrorRecorded() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	s.client.QueueResponse(nil, errors.New("connection refused"))
	s.NoError(s.handler.deliver(ctx, row, ep))

	s.Equal(types.WebhookStatusPending, row.WebhookStatus)
	s.Equal(1, row.Retries)

	attempts, err := s.webhookRepo.ListAttempts(ctx, row.ID)
	s.NoError(err)
	s.Require().Len(attempts, 1)
	s.Equal("connection refused", attempts[0].Error)
}

func (s *HandlerSuite) TestDeliverExhaustsRetryBudget() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	for i := 0; i < 3; i++ {
		s.client.QueueResponse(&httpclient.Response{StatusCode: 503}, nil)
		s.NoError(s.handler.deliver(ctx, row, ep))
	}

	s.Equal(types.WebhookStatusFailed, row.WebhookStatus)
	s.Equal(3, row.Retries)
	s.Nil(row.NextRetryAt)

	attempts, err := s.webhookRepo.ListAttempts(ctx, row.ID)
	s.NoError(err)
	s.Require().Len(attempts, 3)
	s.Equal(3, attempts[2].AttemptNumber)
}

func (s *HandlerSuite) TestProcessDueRetriesRedelivers() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	past := time.Now().UTC().Add(-time.Minute)
	row.Retries = 1
	row.NextRetryAt = &past
	s.Require().NoError(s.webhookRepo.UpdateWebhook(ctx, row))

	s.NoError(s.handler.ProcessDueRetries(ctx, time.Now().UTC(), 10))

	reloaded, err := s.webhookRepo.GetWebhook(ctx, row.ID)
	s.NoError(err)
	s.Equal(types.WebhookStatusSuccess, reloaded.WebhookStatus)
	s.Nil(reloaded.NextRetryAt)
	s.Len(s.client.Requests(), 1)
}

func (s *HandlerSuite) TestProcessDueRetriesSkipsFutureRows() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	future := time.Now().UTC().Add(time.Hour)
	row.Retries = 1
	row.NextRetryAt = &future
	s.Require().NoError(s.webhookRepo.UpdateWebhook(ctx, row))

	s.NoError(s.handler.ProcessDueRetries(ctx, time.Now().UTC(), 10))

	reloaded, err := s.webhookRepo.GetWebhook(ctx, row.ID)
	s.NoError(err)
	s.Equal(types.WebhookStatusPending, reloaded.WebhookStatus)
	s.Empty(s.client.Requests())
}

func (s *HandlerSuite) TestProcessDueRetriesFailsDisabledEndpoint() {
	ctx := testutil.SetupContext()
	ep := s.seedEndpoint("whsec_test")
	row := s.seedWebhook(ep)

	past := time.Now().UTC().Add(-time.Minute)
	row.Retries = 1
	row.NextRetryAt = &past
	s.Require().NoError(s.webhookRepo.UpdateWebhook(ctx, row))

	ep.EndpointStatus = types.WebhookEndpointStatusDisabled
	s.Require().NoError(s.webhookRepo.UpdateEndpoint(ctx, ep))

	s.NoError(s.handler.ProcessDueRetries(ctx, time.Now().UTC(), 10))

	reloaded, err := s.webhookRepo.GetWebhook(ctx, row.ID)
	s.NoError(err)
	s.Equal(types.WebhookStatusFailed, reloaded.WebhookStatus)
	s.Nil(reloaded.NextRetryAt)
	s.Empty(s.client.Requests())
}
