package postgres

import (
	"context"

	"github.com/billix/billix/internal/domain/metric"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
)

var metricSortFields = []string{"created_at", "updated_at", "code", "name"}

type metricRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewMetricRepository(db postgres.IClient, logger *logger.Logger) metric.Repository {
	return &metricRepository{db: db, logger: logger}
}

// metricRow flattens the filters list into a JSONB column
type metricRow struct {
	ID                string                 `db:"id"`
	Code              string                 `db:"code"`
	Name              string                 `db:"name"`
	AggregationType   types.AggregationType  `db:"aggregation_type"`
	FieldName         string                 `db:"field_name"`
	Recurring         bool                   `db:"recurring"`
	RoundingFunction  types.RoundingFunction `db:"rounding_function"`
	RoundingPrecision int32                  `db:"rounding_precision"`
	Expression        string                 `db:"expression"`
	Filters           []byte                 `db:"filters"`
	types.BaseModel
}

func toMetricRow(m *metric.Metric) *metricRow {
	return &metricRow{
		ID:                m.ID,
		Code:              m.Code,
		Name:              m.Name,
		AggregationType:   m.AggregationType,
		FieldName:         m.FieldName,
		Recurring:         m.Recurring,
		RoundingFunction:  m.RoundingFunction,
		RoundingPrecision: m.RoundingPrecision,
		Expression:        m.Expression,
		Filters:           mustJSON(m.Filters),
		BaseModel:         m.BaseModel,
	}
}

func (row *metricRow) toDomain() (*metric.Metric, error) {
	m := &metric.Metric{
		ID:                row.ID,
		Code:              row.Code,
		Name:              row.Name,
		AggregationType:   row.AggregationType,
		FieldName:         row.FieldName,
		Recurring:         row.Recurring,
		RoundingFunction:  row.RoundingFunction,
		RoundingPrecision: row.RoundingPrecision,
		Expression:        row.Expression,
		BaseModel:         row.BaseModel,
	}
	if err := fromJSON(row.Filters, &m.Filters); err != nil {
		return nil, err
	}
	return m, nil
}

const metricColumns = `
	id, code, name, aggregation_type, field_name, recurring,
	rounding_function, rounding_precision, expression, filters,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *metricRepository) Create(ctx context.Context, m *metric.Metric) error {
	query := `
		INSERT INTO billable_metrics (
			id, code, name, aggregation_type, field_name, recurring,
			rounding_function, rounding_precision, expression, filters,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :code, :name, :aggregation_type, :field_name, :recurring,
			:rounding_function, :rounding_precision, :expression, :filters,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := postgres.NamedExec(ctx, r.db, query, toMetricRow(m))
	return wrapErr(err, "Failed to create metric, code may already exist")
}

func (r *metricRepository) Get(ctx context.Context, id string) (*metric.Metric, error) {
	var row metricRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, `
		SELECT `+metricColumns+`
		FROM billable_metrics
		WHERE id = $1 AND tenant_id = $2 AND status != $3`,
		id, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Metric not found")
	}
	return row.toDomain()
}

func (r *metricRepository) GetByCode(ctx context.Context, code string) (*metric.Metric, error) {
	var row metricRow
	err := r.db.Querier(ctx).GetContext(ctx, &row, `
		SELECT `+metricColumns+`
		FROM billable_metrics
		WHERE code = $1 AND tenant_id = $2 AND status != $3`,
		code, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Metric not found")
	}
	return row.toDomain()
}

func (r *metricRepository) List(ctx context.Context, filter types.Filter) ([]*metric.Metric, int, error) {
	sort, err := filter.ParseOrderBy(metricSortFields, "created_at")
	if err != nil {
		return nil, 0, err
	}

	rows := []*metricRow{}
	err = r.db.Querier(ctx).SelectContext(ctx, &rows, `
		SELECT `+metricColumns+`
		FROM billable_metrics
		WHERE tenant_id = $1 AND status != $2
		ORDER BY `+sort.Field+` `+string(sort.Direction)+`
		LIMIT $3 OFFSET $4`,
		types.GetTenantID(ctx), types.StatusDeleted, filter.GetLimit(), filter.GetSkip())
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to list metrics")
	}

	metrics := make([]*metric.Metric, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		metrics = append(metrics, m)
	}

	var total int
	err = r.db.Querier(ctx).GetContext(ctx, &total, `
		SELECT COUNT(*) FROM billable_metrics
		WHERE tenant_id = $1 AND status != $2`,
		types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, 0, wrapErr(err, "Failed to count metrics")
	}
	return metrics, total, nil
}

func (r *metricRepository) Update(ctx context.Context, m *metric.Metric) error {
	query := `
		UPDATE billable_metrics SET
			name = :name,
			rounding_function = :rounding_function,
			rounding_precision = :rounding_precision,
			filters = :filters,
			updated_at = NOW(),
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status != 'deleted'`

	_, err := postgres.NamedExec(ctx, r.db, query, toMetricRow(m))
	return wrapErr(err, "Failed to update metric")
}

func (r *metricRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		UPDATE billable_metrics SET status = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3`,
		types.StatusDeleted, id, types.GetTenantID(ctx))
	return wrapErr(err, "Failed to delete metric")
}
