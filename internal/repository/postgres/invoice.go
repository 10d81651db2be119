package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billix/billix/internal/domain/invoice"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

var invoiceSortFields = []string{"created_at", "updated_at", "invoice_number", "issued_at", "total"}

type invoiceRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewInvoiceRepository(db postgres.IClient, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `
	id, invoice_number, customer_id, subscription_id, invoice_type, invoice_status, currency,
	subtotal, coupons_amount, prepaid_credit_amount, progressive_billing_credit_amount,
	tax_amount, total, amount_paid,
	period_start, period_end, issued_at, due_at, finalized_at, paid_at, voided_at,
	idempotency_key, description, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

const feeColumns = `
	id, invoice_id, fee_type, charge_id, metric_id, description, units, events_count,
	unit_amount, amount, tax_amount, payment_status, currency, metadata,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO invoices (
				id, invoice_number, customer_id, subscription_id, invoice_type, invoice_status, currency,
				subtotal, coupons_amount, prepaid_credit_amount, progressive_billing_credit_amount,
				tax_amount, total, amount_paid,
				period_start, period_end, issued_at, due_at, finalized_at, paid_at, voided_at,
				idempotency_key, description, metadata,
				tenant_id, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :invoice_number, :customer_id, :subscription_id, :invoice_type, :invoice_status, :currency,
				:subtotal, :coupons_amount, :prepaid_credit_amount, :progressive_billing_credit_amount,
				:tax_amount, :total, :amount_paid,
				:period_start, :period_end, :issued_at, :due_at, :finalized_at, :paid_at, :voided_at,
				:idempotency_key, :description, :metadata,
				:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
			)`

		if _, err := postgres.NamedExec(txCtx, r.db, query, inv); err != nil {
			return wrapErr(err, "Failed to create invoice, idempotency key may already exist")
		}

		for _, fee := range inv.Fees {
			if err := r.createFee(txCtx, fee); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) createFee(ctx context.Context, fee *invoice.Fee) error {
	query := `
		INSERT INTO fees (
			id, invoice_id, fee_type, charge_id, metric_id, description, units, events_count,
			unit_amount, amount, tax_amount, payment_status, currency, metadata,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_id, :fee_type, :charge_id, :metric_id, :description, :units, :events_count,
			:unit_amount, :amount, :tax_amount, :payment_status, :currency, :metadata,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, fee)
	return wrapErr(err, "Failed to create invoice fee")
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Querier(ctx).GetContext(ctx, &inv, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Invoice not found")
	}
	if err := r.loadFees(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Querier(ctx).GetContext(ctx, &inv, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE idempotency_key = $1 AND tenant_id = $2 AND status != $3`,
		key, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Invoice not found")
	}
	if err := r.loadFees(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) loadFees(ctx context.Context, inv *invoice.Invoice) error {
	fees := []*invoice.Fee{}
	err := r.db.Querier(ctx).SelectContext(ctx, &fees, `
		SELECT `+feeColumns+`
		FROM fees
		WHERE invoice_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at, id`,
		inv.ID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return wrapErr(err, "Failed to load invoice fees")
	}
	inv.Fees = fees
	return nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices SET
			invoice_status = :invoice_status,
			subtotal = :subtotal,
			coupons_amount = :coupons_amount,
			prepaid_credit_amount = :prepaid_credit_amount,
			progressive_billing_credit_amount = :progressive_billing_credit_amount,
			tax_amount = :tax_amount,
			total = :total,
			amount_paid = :amount_paid,
			issued_at = :issued_at,
			due_at = :due_at,
			finalized_at = :finalized_at,
			paid_at = :paid_at,
			voided_at = :voided_at,
			metadata = :metadata,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, inv)
	return wrapErr(err, "Failed to update invoice")
}

// buildFilterClause appends the optional predicates of the filter, returning
// the WHERE tail and its arguments starting at $3
func buildFilterClause(filter *invoice.InvoiceFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	next := 3

	add := func(clause string, value interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, next))
		args = append(args, value)
		next++
	}

	if filter.CustomerID != "" {
		add("customer_id = $%d", filter.CustomerID)
	}
	if filter.SubscriptionID != "" {
		add("subscription_id = $%d", filter.SubscriptionID)
	}
	if filter.InvoiceType != "" {
		add("invoice_type = $%d", filter.InvoiceType)
	}
	if filter.PeriodStart != nil {
		add("period_start >= $%d", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		add("period_end <= $%d", *filter.PeriodEnd)
	}
	if len(filter.InvoiceStatus) > 0 {
		placeholders := make([]string, 0, len(filter.InvoiceStatus))
		for _, s := range filter.InvoiceStatus {
			placeholders = append(placeholders, fmt.Sprintf("$%d", next))
			args = append(args, s)
			next++
		}
		clauses = append(clauses, "invoice_status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func (r *invoiceRepository) List(ctx context.Context, filter *invoice.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter.Filter == nil {
		filter.Filter = &types.Filter{}
	}
	sort, err := filter.ParseOrderBy(invoiceSortFields, "created_at")
	if err != nil {
		return nil, err
	}

	clause, args := buildFilterClause(filter)
	args = append([]interface{}{types.GetTenantID(ctx), types.StatusDeleted}, args...)
	args = append(args, filter.GetLimit(), filter.GetSkip())

	query := fmt.Sprintf(`
		SELECT %s
		FROM invoices
		WHERE tenant_id = $1 AND status != $2%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		invoiceColumns, clause, sort.Field, sort.Direction, len(args)-1, len(args))

	invoices := []*invoice.Invoice{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, wrapErr(err, "Failed to list invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *invoice.InvoiceFilter) (int, error) {
	clause, args := buildFilterClause(filter)
	args = append([]interface{}{types.GetTenantID(ctx), types.StatusDeleted}, args...)

	var total int
	err := r.db.Querier(ctx).GetContext(ctx, &total, `
		SELECT COUNT(*) FROM invoices
		WHERE tenant_id = $1 AND status != $2`+clause,
		args...)
	if err != nil {
		return 0, wrapErr(err, "Failed to count invoices")
	}
	return total, nil
}

func (r *invoiceRepository) ListOutstanding(ctx context.Context, customerID string, asOf time.Time) ([]*invoice.Invoice, error) {
	invoices := []*invoice.Invoice{}
	err := r.db.Querier(ctx).SelectContext(ctx, &invoices, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		  AND invoice_status = $4
		  AND total > amount_paid
		  AND due_at IS NOT NULL AND due_at <= $5
		ORDER BY due_at, id`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted,
		types.InvoiceStatusFinalized, asOf)
	if err != nil {
		return nil, wrapErr(err, "Failed to list outstanding invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) CreateSettlement(ctx context.Context, s *invoice.Settlement) error {
	query := `
		INSERT INTO settlements (
			id, invoice_id, source_type, source_id, amount, currency,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_id, :source_type, :source_id, :amount, :currency,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, s)
	return wrapErr(err, "Failed to create settlement")
}

func (r *invoiceRepository) ListSettlements(ctx context.Context, invoiceID string) ([]*invoice.Settlement, error) {
	settlements := []*invoice.Settlement{}
	err := r.db.Querier(ctx).SelectContext(ctx, &settlements, `
		SELECT id, invoice_id, source_type, source_id, amount, currency,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM settlements
		WHERE invoice_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at, id`,
		invoiceID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list settlements")
	}
	return settlements, nil
}
