package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/creditnote"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type creditNoteRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewCreditNoteRepository(db postgres.IClient, logger *logger.Logger) creditnote.Repository {
	return &creditNoteRepository{db: db, logger: logger}
}

const creditNoteColumns = `
	id, number, invoice_id, customer_id, credit_note_type, credit_note_status,
	credit_status, refund_status, currency, total_amount, consumed_amount,
	reason, finalized_at,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *creditNoteRepository) CreateWithItems(ctx context.Context, cn *creditnote.CreditNote) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO credit_notes (
				id, number, invoice_id, customer_id, credit_note_type, credit_note_status,
				credit_status, refund_status, currency, total_amount, consumed_amount,
				reason, finalized_at,
				tenant_id, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :number, :invoice_id, :customer_id, :credit_note_type, :credit_note_status,
				:credit_status, :refund_status, :currency, :total_amount, :consumed_amount,
				:reason, :finalized_at,
				:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
			)`

		if _, err := postgres.NamedExec(txCtx, r.db, query, cn); err != nil {
			return wrapErr(err, "Failed to create credit note")
		}

		for _, item := range cn.Items {
			itemQuery := `
				INSERT INTO credit_note_items (
					id, credit_note_id, fee_id, amount,
					tenant_id, status, created_at, updated_at, created_by, updated_by
				) VALUES (
					:id, :credit_note_id, :fee_id, :amount,
					:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
				)`
			if _, err := postgres.NamedExec(txCtx, r.db, itemQuery, item); err != nil {
				return wrapErr(err, "Failed to create credit note item")
			}
		}
		return nil
	})
}

func (r *creditNoteRepository) Get(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	var cn creditnote.CreditNote
	err := r.db.Querier(ctx).GetContext(ctx, &cn, `
		SELECT `+creditNoteColumns+`
		FROM credit_notes
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Credit note not found")
	}
	if err := r.loadItems(ctx, &cn); err != nil {
		return nil, err
	}
	return &cn, nil
}

func (r *creditNoteRepository) loadItems(ctx context.Context, cn *creditnote.CreditNote) error {
	items := []*creditnote.Item{}
	err := r.db.Querier(ctx).SelectContext(ctx, &items, `
		SELECT id, credit_note_id, fee_id, amount,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM credit_note_items
		WHERE credit_note_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at, id`,
		cn.ID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return wrapErr(err, "Failed to load credit note items")
	}
	cn.Items = items
	return nil
}

func (r *creditNoteRepository) Update(ctx context.Context, cn *creditnote.CreditNote) error {
	query := `
		UPDATE credit_notes SET
			credit_note_status = :credit_note_status,
			credit_status = :credit_status,
			refund_status = :refund_status,
			consumed_amount = :consumed_amount,
			finalized_at = :finalized_at,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := postgres.NamedExec(ctx, r.db, query, cn)
	return wrapErr(err, "Failed to update credit note")
}

func (r *creditNoteRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*creditnote.CreditNote, error) {
	notes := []*creditnote.CreditNote{}
	err := r.db.Querier(ctx).SelectContext(ctx, &notes, `
		SELECT `+creditNoteColumns+`
		FROM credit_notes
		WHERE invoice_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at, id`,
		invoiceID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list invoice credit notes")
	}
	return notes, nil
}

func (r *creditNoteRepository) ListAvailableOffsets(ctx context.Context, customerID, currency string) ([]*creditnote.CreditNote, error) {
	notes := []*creditnote.CreditNote{}
	err := r.db.Querier(ctx).SelectContext(ctx, &notes, `
		SELECT `+creditNoteColumns+`
		FROM credit_notes
		WHERE customer_id = $1 AND currency = $2 AND tenant_id = $3 AND status != $4
		  AND credit_note_type = $5
		  AND credit_status = $6
		  AND total_amount > consumed_amount
		ORDER BY created_at, id`,
		customerID, currency, types.GetTenantID(ctx), types.StatusDeleted,
		types.CreditNoteTypeOffset, types.CreditStatusAvailable)
	if err != nil {
		return nil, wrapErr(err, "Failed to list available offset credits")
	}
	return notes, nil
}

func (r *creditNoteRepository) ListByCustomer(ctx context.Context, customerID string, filter *types.Filter) ([]*creditnote.CreditNote, error) {
	if filter == nil {
		filter = &types.Filter{}
	}
	notes := []*creditnote.CreditNote{}
	err := r.db.Querier(ctx).SelectContext(ctx, &notes, `
		SELECT `+creditNoteColumns+`
		FROM credit_notes
		WHERE customer_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		customerID, types.GetTenantID(ctx), types.StatusDeleted,
		filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, wrapErr(err, "Failed to list customer credit notes")
	}
	return notes, nil
}
