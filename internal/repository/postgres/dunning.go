package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/dunning"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

type dunningRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewDunningRepository(db postgres.IClient, logger *logger.Logger) dunning.Repository {
	return &dunningRepository{db: db, logger: logger}
}

const dunningCampaignColumns = `
	id, name, code, max_attempts, days_between_attempts, applied_to_org,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *dunningRepository) CreateWithThresholds(ctx context.Context, c *dunning.Campaign) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO dunning_campaigns (
				id, name, code, max_attempts, days_between_attempts, applied_to_org,
				tenant_id, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :name, :code, :max_attempts, :days_between_attempts, :applied_to_org,
				:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
			)`

		if _, err := postgres.NamedExec(txCtx, r.db, query, c); err != nil {
			return wrapErr(err, "Failed to create dunning campaign, code may already exist")
		}

		for _, t := range c.Thresholds {
			thresholdQuery := `
				INSERT INTO dunning_thresholds (
					id, campaign_id, currency, amount,
					tenant_id, status, created_at, updated_at, created_by, updated_by
				) VALUES (
					:id, :campaign_id, :currency, :amount,
					:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
				)`
			if _, err := postgres.NamedExec(txCtx, r.db, thresholdQuery, t); err != nil {
				return wrapErr(err, "Failed to create dunning threshold")
			}
		}
		return nil
	})
}

func (r *dunningRepository) Get(ctx context.Context, id string) (*dunning.Campaign, error) {
	var c dunning.Campaign
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+dunningCampaignColumns+`
		FROM dunning_campaigns
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Dunning campaign not found")
	}
	if err := r.loadThresholds(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *dunningRepository) GetByCode(ctx context.Context, code string) (*dunning.Campaign, error) {
	var c dunning.Campaign
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+dunningCampaignColumns+`
		FROM dunning_campaigns
		WHERE code = $1 AND tenant_id = $2 AND status != $3`,
		code, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Dunning campaign not found")
	}
	if err := r.loadThresholds(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *dunningRepository) loadThresholds(ctx context.Context, c *dunning.Campaign) error {
	thresholds := []*dunning.Threshold{}
	err := r.db.Querier(ctx).SelectContext(ctx, &thresholds, `
		SELECT id, campaign_id, currency, amount,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM dunning_thresholds
		WHERE campaign_id = $1 AND tenant_id = $2 AND status != $3
		ORDER BY currency`,
		c.ID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return wrapErr(err, "Failed to load dunning thresholds")
	}
	c.Thresholds = thresholds
	return nil
}

func (r *dunningRepository) Update(ctx context.Context, c *dunning.Campaign) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			UPDATE dunning_campaigns SET
				name = :name,
				max_attempts = :max_attempts,
				days_between_attempts = :days_between_attempts,
				applied_to_org = :applied_to_org,
				updated_at = NOW(),
				updated_by = :updated_by
			WHERE id = :id AND tenant_id = :tenant_id`

		if _, err := postgres.NamedExec(txCtx, r.db, query, c); err != nil {
			return wrapErr(err, "Failed to update dunning campaign")
		}

		// Thresholds are replaced wholesale on update
		if _, err := r.db.Querier(txCtx).ExecContext(txCtx, `
			DELETE FROM dunning_thresholds
			WHERE campaign_id = $1 AND tenant_id = $2`,
			c.ID, types.GetTenantID(txCtx)); err != nil {
			return wrapErr(err, "Failed to replace dunning thresholds")
		}

		for _, t := range c.Thresholds {
			thresholdQuery := `
				INSERT INTO dunning_thresholds (
					id, campaign_id, currency, amount,
					tenant_id, status, created_at, updated_at, created_by, updated_by
				) VALUES (
					:id, :campaign_id, :currency, :amount,
					:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
				)`
			if _, err := postgres.NamedExec(txCtx, r.db, thresholdQuery, t); err != nil {
				return wrapErr(err, "Failed to create dunning threshold")
			}
		}
		return nil
	})
}

func (r *dunningRepository) GetOrgDefault(ctx context.Context) (*dunning.Campaign, error) {
	var c dunning.Campaign
	err := r.db.Querier(ctx).GetContext(ctx, &c, `
		SELECT `+dunningCampaignColumns+`
		FROM dunning_campaigns
		WHERE applied_to_org = TRUE AND tenant_id = $1 AND status = $2
		ORDER BY created_at
		LIMIT 1`,
		types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		return nil, wrapErr(err, "No org-wide dunning campaign configured")
	}
	if err := r.loadThresholds(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *dunningRepository) List(ctx context.Context) ([]*dunning.Campaign, error) {
	campaigns := []*dunning.Campaign{}
	err := r.db.Querier(ctx).SelectContext(ctx, &campaigns, `
		SELECT `+dunningCampaignColumns+`
		FROM dunning_campaigns
		WHERE tenant_id = $1 AND status != $2
		ORDER BY created_at, id`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list dunning campaigns")
	}
	for _, c := range campaigns {
		if err := r.loadThresholds(ctx, c); err != nil {
			return nil, err
		}
	}
	return campaigns, nil
}
