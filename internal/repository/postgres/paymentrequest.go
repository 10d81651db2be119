package postgres

import (
	"context"
	"time"

	"github.com/billix/billix/internal/domain/paymentrequest"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type paymentRequestRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewPaymentRequestRepository(db postgres.IClient, logger *logger.Logger) paymentrequest.Repository {
	return &paymentRequestRepository{db: db, logger: logger}
}

const paymentRequestColumns = `
	id, customer_id, dunning_campaign_id, currency, amount, payment_status,
	attempt_count, last_attempt_at, next_attempt_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *paymentRequestRepository) Create(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO payment_requests (
				id, customer_id, dunning_campaign_id, currency, amount, payment_status,
				attempt_count, last_attempt_at, next_attempt_at,
				tenant_id, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :customer_id, :dunning_campaign_id, :currency, :amount, :payment_status,
				:attempt_count, :last_attempt_at, :next_attempt_at,
				:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
			)`

		if _, err := postgres.NamedExec(txCtx, r.db, query, pr); err != nil {
			return wrapErr(err, "Failed to create payment request")
		}

		for _, invoiceID := range pr.InvoiceIDs {
			if _, err := r.db.Querier(txCtx).ExecContext(txCtx, `
				INSERT INTO payment_request_invoices (payment_request_id, invoice_id, tenant_id)
				VALUES ($1, $2, $3)`,
				pr.ID, invoiceID, pr.TenantID); err != nil {
				return wrapErr(err, "Failed to link invoice to payment request")
			}
		}
		return nil
	})
}

func (r *paymentRequestRepository) Get(ctx context.Context, id string) (*paymentrequest.PaymentRequest, error) {
	var pr paymentrequest.PaymentRequest
	err := r.db.Querier(ctx).GetContext(ctx, &pr, `
		SELECT `+paymentRequestColumns+`
		FROM payment_requests
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Payment request not found")
	}
	if err := r.loadInvoiceIDs(ctx, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *paymentRequestRepository) loadInvoiceIDs(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	ids := []string{}
	err := r.db.Querier(ctx).SelectContext(ctx, &ids, `
		SELECT invoice_id FROM payment_request_invoices
		WHERE payment_request_id = $1 AND tenant_id = $2
		ORDER BY invoice_id`,
		pr.ID, types.GetTenantID(ctx))
	if err != nil {
		return wrapErr(err, "Failed to load payment request invoices")
	}
	pr.InvoiceIDs = ids
	return nil
}

func (r *paymentRequestRepository) Update(ctx context.Context, pr *paymentrequest.PaymentRequest) error {
	query := `
		UPDATE payment_requests SET
			payment_status = :payment_status,
			attempt_count = :attempt_count,
			last_attempt_at = :last_attempt_at,
			next_attempt_at = :next_attempt_at,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, pr)
	return wrapErr(err, "Failed to update payment request")
}

func (r *paymentRequestRepository) ListOpenByCustomer(ctx context.Context, customerID string) ([]*paymentrequest.PaymentRequest, error) {
	requests := []*paymentrequest.PaymentRequest{}
	err := r.db.Querier(ctx).SelectContext(ctx, &requests, `
		SELECT `+paymentRequestColumns+`
		FROM payment_requests
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		  AND payment_status != $4
		ORDER BY created_at, id`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted,
		types.PaymentRequestStatusFailed)
	if err != nil {
		return nil, wrapErr(err, "Failed to list open payment requests")
	}
	for _, pr := range requests {
		if err := r.loadInvoiceIDs(ctx, pr); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *paymentRequestRepository) ListDueForRetry(ctx context.Context, asOf time.Time) ([]*paymentrequest.PaymentRequest, error) {
	requests := []*paymentrequest.PaymentRequest{}
	err := r.db.Querier(ctx).SelectContext(ctx, &requests, `
		SELECT `+paymentRequestColumns+`
		FROM payment_requests
		WHERE tenant_id = $1 AND status != $2
		  AND payment_status = $3
		  AND next_attempt_at IS NOT NULL AND next_attempt_at <= $4
		ORDER BY next_attempt_at, id`,
		types.GetTenantID(ctx), types.StatusDeleted,
		types.PaymentRequestStatusPending, asOf)
	if err != nil {
		return nil, wrapErr(err, "Failed to list payment requests due for retry")
	}
	for _, pr := range requests {
		if err := r.loadInvoiceIDs(ctx, pr); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *paymentRequestRepository) ListByCustomer(ctx context.Context, customerID string, filter *types.Filter) ([]*paymentrequest.PaymentRequest, error) {
	if filter == nil {
		filter = &types.Filter{}
	}
	requests := []*paymentrequest.PaymentRequest{}
	err := r.db.Querier(ctx).SelectContext(ctx, &requests, `
		SELECT `+paymentRequestColumns+`
		FROM payment_requests
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted,
		filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, wrapErr(err, "Failed to list customer payment requests")
	}
	for _, pr := range requests {
		if err := r.loadInvoiceIDs(ctx, pr); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func (r *paymentRequestRepository) CreatePayment(ctx context.Context, p *paymentrequest.Payment) error {
	query := `
		INSERT INTO payments (
			id, payment_request_id, customer_id, currency, amount, succeeded_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :payment_request_id, :customer_id, :currency, :amount, :succeeded_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, p)
	return wrapErr(err, "Failed to create payment")
}

func (r *paymentRequestRepository) ListPayments(ctx context.Context, paymentRequestID string) ([]*paymentrequest.Payment, error) {
	payments := []*paymentrequest.Payment{}
	err := r.db.Querier(ctx).SelectContext(ctx, &payments, `
		SELECT id, payment_request_id, customer_id, currency, amount, succeeded_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM payments
		WHERE payment_request_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY succeeded_at, id`,
		paymentRequestID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list payments")
	}
	return payments, nil
}
