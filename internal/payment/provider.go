package payment

import (
	"context"
	"net/http"

	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/domain/paymentrequest"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/httpclient"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/service"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// httpProvider charges payment requests against an external collection
// API. The provider is synchronous: a 2xx response means the full amount
// was captured, anything else is a failed attempt.
type httpProvider struct {
	cfg    *config.PaymentConfig
	client httpclient.Client
	logger *logger.Logger
}

type chargeRequest struct {
	PaymentRequestID string   `json:"payment_request_id"`
	CustomerID       string   `json:"customer_id"`
	Currency         string   `json:"currency"`
	Amount           string   `json:"amount"`
	InvoiceIDs       []string `json:"invoice_ids"`
}

// NewProvider returns the configured payment provider, or nil when no
// provider URL is set. Dunning treats a nil provider as collection
// disabled.
func NewProvider(
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
) service.PaymentProvider {
	if cfg.Payment.ProviderURL == "" {
		return nil
	}
	return &httpProvider{
		cfg:    &cfg.Payment,
		client: client,
		logger: logger,
	}
}

func (p *httpProvider) Charge(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	body, err := json.Marshal(chargeRequest{
		PaymentRequestID: pr.ID,
		CustomerID:       pr.CustomerID,
		Currency:         pr.Currency,
		Amount:           pr.Amount.String(),
		InvoiceIDs:       pr.InvoiceIDs,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode charge request").
			Mark(ierr.ErrSystem)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if p.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.cfg.APIKey
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     p.cfg.ProviderURL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Payment provider unreachable").
			Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warnw("charge declined",
			"payment_request_id", pr.ID,
			"status_code", resp.StatusCode,
		)
		return ierr.NewError("charge declined").
			WithHintf("Payment provider declined the charge with status %d", resp.StatusCode).
			WithReportableDetails(map[string]any{
				"payment_request_id": pr.ID,
				"status_code":        resp.StatusCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	return nil
}
