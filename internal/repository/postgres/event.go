package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billix/billix/internal/domain/events"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/postgres"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

type eventRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewEventRepository(db postgres.IClient, logger *logger.Logger) events.Repository {
	return &eventRepository{db: db, logger: logger}
}

// eventRow stores properties as JSONB
type eventRow struct {
	ID                 string    `db:"id"`
	TenantID           string    `db:"tenant_id"`
	TransactionID      string    `db:"transaction_id"`
	ExternalCustomerID string    `db:"external_customer_id"`
	Code               string    `db:"code"`
	Timestamp          time.Time `db:"timestamp"`
	IngestedAt         time.Time `db:"ingested_at"`
	Properties         []byte    `db:"properties"`
}

func toEventRow(e *events.Event) *eventRow {
	return &eventRow{
		ID:                 e.ID,
		TenantID:           e.TenantID,
		TransactionID:      e.TransactionID,
		ExternalCustomerID: e.ExternalCustomerID,
		Code:               e.Code,
		Timestamp:          e.Timestamp,
		IngestedAt:         e.IngestedAt,
		Properties:         mustJSON(e.Properties),
	}
}

func (row *eventRow) toDomain() (*events.Event, error) {
	e := &events.Event{
		ID:                 row.ID,
		TenantID:           row.TenantID,
		TransactionID:      row.TransactionID,
		ExternalCustomerID: row.ExternalCustomerID,
		Code:               row.Code,
		Timestamp:          row.Timestamp,
		IngestedAt:         row.IngestedAt,
	}
	if err := fromJSON(row.Properties, &e.Properties); err != nil {
		return nil, err
	}
	return e, nil
}

const eventColumns = `
	id, tenant_id, transaction_id, external_customer_id, code, timestamp, ingested_at, properties`

// InsertEvent relies on the (tenant_id, transaction_id) unique index; a
// conflicting insert is a duplicate, not an error
func (r *eventRepository) InsertEvent(ctx context.Context, event *events.Event) (bool, error) {
	event.IngestedAt = time.Now().UTC()

	result, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO events (
			id, tenant_id, transaction_id, external_customer_id, code, timestamp, ingested_at, properties
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, transaction_id) DO NOTHING`,
		event.ID, event.TenantID, event.TransactionID, event.ExternalCustomerID,
		event.Code, event.Timestamp, event.IngestedAt, mustJSON(event.Properties))
	if err != nil {
		return false, wrapErr(err, "Failed to insert event")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err, "Failed to read event insert result")
	}
	return rows > 0, nil
}

func (r *eventRepository) BulkInsertEvents(ctx context.Context, batch []*events.Event) (*events.IngestResult, error) {
	result := &events.IngestResult{}
	err := r.db.WithTx(ctx, func(txCtx context.Context) error {
		for _, event := range batch {
			inserted, err := r.InsertEvent(txCtx, event)
			if err != nil {
				return err
			}
			if inserted {
				result.Ingested++
			} else {
				result.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildUsageClause returns the shared WHERE tail for usage queries, with
// arguments starting at $1
func buildUsageClause(ctx context.Context, params *events.UsageParams) (string, []interface{}) {
	clauses := []string{"tenant_id = $1", "code = $2"}
	args := []interface{}{types.GetTenantID(ctx), params.Code}
	next := 3

	add := func(clause string, value interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, next))
		args = append(args, value)
		next++
	}

	if params.ExternalCustomerID != "" {
		add("external_customer_id = $%d", params.ExternalCustomerID)
	}
	if !params.StartTime.IsZero() {
		add("timestamp >= $%d", params.StartTime)
	}
	if !params.EndTime.IsZero() {
		add("timestamp < $%d", params.EndTime)
	}
	for key, want := range params.PropertyFilters {
		clauses = append(clauses, fmt.Sprintf("properties->>$%d = $%d", next, next+1))
		args = append(args, key, want)
		next += 2
	}

	return strings.Join(clauses, " AND "), args
}

func (r *eventRepository) GetUsage(ctx context.Context, params *events.UsageParams) (*events.AggregationResult, error) {
	where, args := buildUsageClause(ctx, params)
	field := fmt.Sprintf("(properties->>'%s')::numeric", strings.ReplaceAll(params.FieldName, "'", "''"))

	var valueExpr string
	switch params.AggregationType {
	case types.AggregationCount:
		valueExpr = "COUNT(*)"
	case types.AggregationSum:
		valueExpr = fmt.Sprintf("COALESCE(SUM(%s), 0)", field)
	case types.AggregationMax:
		valueExpr = fmt.Sprintf("COALESCE(MAX(%s), 0)", field)
	case types.AggregationUniqueCount:
		valueExpr = fmt.Sprintf("COUNT(DISTINCT properties->>'%s')", strings.ReplaceAll(params.FieldName, "'", "''"))
	case types.AggregationWeightedSum, types.AggregationLatest, types.AggregationCustom:
		return nil, ierr.NewError("aggregation not implemented").
			WithHintf("Aggregation type %s is reserved and cannot be evaluated", params.AggregationType).
			Mark(ierr.ErrInvalidOperation)
	default:
		return nil, ierr.NewError("unknown aggregation type").
			WithHintf("Aggregation type %s is not recognized", params.AggregationType).
			Mark(ierr.ErrValidation)
	}

	var row struct {
		Value       decimal.Decimal `db:"value"`
		EventsCount uint64          `db:"events_count"`
	}
	query := fmt.Sprintf(`
		SELECT %s AS value, COUNT(*) AS events_count
		FROM events
		WHERE %s`, valueExpr, where)

	if err := r.db.Querier(ctx).GetContext(ctx, &row, query, args...); err != nil {
		return nil, wrapErr(err, "Failed to aggregate usage")
	}
	return &events.AggregationResult{Value: row.Value, EventsCount: row.EventsCount}, nil
}

func (r *eventRepository) GetRawEvents(ctx context.Context, params *events.UsageParams) ([]*events.Event, error) {
	where, args := buildUsageClause(ctx, params)

	rows := []*eventRow{}
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE %s
		ORDER BY timestamp, ingested_at, id`, eventColumns, where)

	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapErr(err, "Failed to fetch raw events")
	}

	list := make([]*events.Event, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

func (r *eventRepository) GetEvents(ctx context.Context, params *events.GetEventsParams) ([]*events.Event, uint64, error) {
	clauses := []string{"tenant_id = $1"}
	args := []interface{}{types.GetTenantID(ctx)}
	next := 2

	add := func(clause string, value interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, next))
		args = append(args, value)
		next++
	}

	if params.Code != "" {
		add("code = $%d", params.Code)
	}
	if params.ExternalCustomerID != "" {
		add("external_customer_id = $%d", params.ExternalCustomerID)
	}
	if !params.StartTime.IsZero() {
		add("timestamp >= $%d", params.StartTime)
	}
	if !params.EndTime.IsZero() {
		add("timestamp < $%d", params.EndTime)
	}
	where := strings.Join(clauses, " AND ")

	var total uint64
	if err := r.db.Querier(ctx).GetContext(ctx, &total,
		"SELECT COUNT(*) FROM events WHERE "+where, args...); err != nil {
		return nil, 0, wrapErr(err, "Failed to count events")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = types.FilterDefaultLimit
	}
	args = append(args, limit, params.Offset)

	rows := []*eventRow{}
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE %s
		ORDER BY timestamp DESC, ingested_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, eventColumns, where, next, next+1)

	if err := r.db.Querier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, wrapErr(err, "Failed to list events")
	}

	list := make([]*events.Event, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		list = append(list, e)
	}
	return list, total, nil
}

type dailyUsageRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewDailyUsageRepository(db postgres.IClient, logger *logger.Logger) events.DailyUsageRepository {
	return &dailyUsageRepository{db: db, logger: logger}
}

// Upsert replaces the rollup for the (subscription, metric, date) triple
func (r *dailyUsageRepository) Upsert(ctx context.Context, usage *events.DailyUsage) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx, `
		INSERT INTO daily_usage (id, tenant_id, subscription_id, metric_id, date, usage_value, events_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, subscription_id, metric_id, date)
		DO UPDATE SET usage_value = EXCLUDED.usage_value, events_count = EXCLUDED.events_count`,
		usage.ID, usage.TenantID, usage.SubscriptionID, usage.MetricID,
		usage.Date, usage.UsageValue, usage.EventsCount)
	return wrapErr(err, "Failed to upsert daily usage")
}

func (r *dailyUsageRepository) Get(ctx context.Context, subscriptionID, metricID string, date time.Time) (*events.DailyUsage, error) {
	var du events.DailyUsage
	err := r.db.Querier(ctx).GetContext(ctx, &du, `
		SELECT id, tenant_id, subscription_id, metric_id, date, usage_value, events_count
		FROM daily_usage
		WHERE tenant_id = $1 AND subscription_id = $2 AND metric_id = $3 AND date = $4`,
		types.GetTenantID(ctx), subscriptionID, metricID, date)
	if err != nil {
		return nil, wrapErr(err, "Daily usage not found")
	}
	return &du, nil
}

func (r *dailyUsageRepository) ListBySubscription(ctx context.Context, subscriptionID string, from, to time.Time) ([]*events.DailyUsage, error) {
	rollups := []*events.DailyUsage{}
	err := r.db.Querier(ctx).SelectContext(ctx, &rollups, `
		SELECT id, tenant_id, subscription_id, metric_id, date, usage_value, events_count
		FROM daily_usage
		WHERE tenant_id = $1 AND subscription_id = $2 AND date >= $3 AND date < $4
		ORDER BY date, metric_id`,
		types.GetTenantID(ctx), subscriptionID, from, to)
	if err != nil {
		return nil, wrapErr(err, "Failed to list daily usage")
	}
	return rollups, nil
}
