package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/billix/billix/internal/clickhouse"
	"github.com/billix/billix/internal/domain/events"
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// eventRepository mirrors events into a ReplacingMergeTree table keyed on
// (tenant_id, transaction_id). Duplicate transactions collapse on merge, so
// every read goes through FINAL to see deduplicated rows.
type eventRepository struct {
	store  *clickhouse.Store
	logger *logger.Logger
}

func NewEventRepository(store *clickhouse.Store, logger *logger.Logger) events.Repository {
	return &eventRepository{store: store, logger: logger}
}

func (r *eventRepository) exists(ctx context.Context, tenantID, transactionID string) (bool, error) {
	var count uint64
	err := r.store.Conn().QueryRow(ctx, `
		SELECT count() FROM events FINAL
		WHERE tenant_id = ? AND transaction_id = ?`,
		tenantID, transactionID).Scan(&count)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check event existence").
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}

func (r *eventRepository) InsertEvent(ctx context.Context, event *events.Event) (bool, error) {
	duplicate, err := r.exists(ctx, event.TenantID, event.TransactionID)
	if err != nil {
		return false, err
	}
	if duplicate {
		return false, nil
	}

	event.IngestedAt = time.Now().UTC()
	properties, err := json.Marshal(event.Properties)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to encode event properties").
			Mark(ierr.ErrValidation)
	}

	err = r.store.Conn().Exec(ctx, `
		INSERT INTO events (id, tenant_id, transaction_id, external_customer_id, code, timestamp, ingested_at, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.TenantID, event.TransactionID, event.ExternalCustomerID,
		event.Code, event.Timestamp, event.IngestedAt, string(properties))
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to insert event").
			Mark(ierr.ErrDatabase)
	}
	return true, nil
}

func (r *eventRepository) BulkInsertEvents(ctx context.Context, batch []*events.Event) (*events.IngestResult, error) {
	result := &events.IngestResult{}
	for _, event := range batch {
		inserted, err := r.InsertEvent(ctx, event)
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Ingested++
		} else {
			result.Duplicates++
		}
	}
	return result, nil
}

func buildUsageClause(ctx context.Context, params *events.UsageParams) (string, []interface{}) {
	clauses := []string{"tenant_id = ?", "code = ?"}
	args := []interface{}{types.GetTenantID(ctx), params.Code}

	if params.ExternalCustomerID != "" {
		clauses = append(clauses, "external_customer_id = ?")
		args = append(args, params.ExternalCustomerID)
	}
	if !params.StartTime.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, params.StartTime)
	}
	if !params.EndTime.IsZero() {
		clauses = append(clauses, "timestamp < ?")
		args = append(args, params.EndTime)
	}
	for key, want := range params.PropertyFilters {
		clauses = append(clauses, "JSONExtractString(properties, ?) = ?")
		args = append(args, key, want)
	}

	return strings.Join(clauses, " AND "), args
}

func (r *eventRepository) GetUsage(ctx context.Context, params *events.UsageParams) (*events.AggregationResult, error) {
	where, args := buildUsageClause(ctx, params)
	field := fmt.Sprintf("JSONExtractFloat(properties, '%s')", strings.ReplaceAll(params.FieldName, "'", "\\'"))

	var valueExpr string
	switch params.AggregationType {
	case types.AggregationCount:
		valueExpr = "toFloat64(count())"
	case types.AggregationSum:
		valueExpr = fmt.Sprintf("sum(%s)", field)
	case types.AggregationMax:
		valueExpr = fmt.Sprintf("max(%s)", field)
	case types.AggregationUniqueCount:
		valueExpr = fmt.Sprintf("toFloat64(uniqExact(JSONExtractString(properties, '%s')))", strings.ReplaceAll(params.FieldName, "'", "\\'"))
	case types.AggregationWeightedSum, types.AggregationLatest, types.AggregationCustom:
		return nil, ierr.NewError("aggregation not implemented").
			WithHintf("Aggregation type %s is reserved and cannot be evaluated", params.AggregationType).
			Mark(ierr.ErrInvalidOperation)
	default:
		return nil, ierr.NewError("unknown aggregation type").
			WithHintf("Aggregation type %s is not recognized", params.AggregationType).
			Mark(ierr.ErrValidation)
	}

	var value float64
	var count uint64
	query := fmt.Sprintf(`
		SELECT %s AS value, count() AS events_count
		FROM events FINAL
		WHERE %s`, valueExpr, where)

	if err := r.store.Conn().QueryRow(ctx, query, args...).Scan(&value, &count); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to aggregate usage").
			Mark(ierr.ErrDatabase)
	}
	return &events.AggregationResult{
		Value:       decimal.NewFromFloat(value),
		EventsCount: count,
	}, nil
}

func (r *eventRepository) GetRawEvents(ctx context.Context, params *events.UsageParams) ([]*events.Event, error) {
	where, args := buildUsageClause(ctx, params)
	query := fmt.Sprintf(`
		SELECT id, tenant_id, transaction_id, external_customer_id, code, timestamp, ingested_at, properties
		FROM events FINAL
		WHERE %s
		ORDER BY timestamp, ingested_at, id`, where)

	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) GetEvents(ctx context.Context, params *events.GetEventsParams) ([]*events.Event, uint64, error) {
	clauses := []string{"tenant_id = ?"}
	args := []interface{}{types.GetTenantID(ctx)}

	if params.Code != "" {
		clauses = append(clauses, "code = ?")
		args = append(args, params.Code)
	}
	if params.ExternalCustomerID != "" {
		clauses = append(clauses, "external_customer_id = ?")
		args = append(args, params.ExternalCustomerID)
	}
	if !params.StartTime.IsZero() {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, params.StartTime)
	}
	if !params.EndTime.IsZero() {
		clauses = append(clauses, "timestamp < ?")
		args = append(args, params.EndTime)
	}
	where := strings.Join(clauses, " AND ")

	var total uint64
	if err := r.store.Conn().QueryRow(ctx,
		"SELECT count() FROM events FINAL WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, ierr.WithError(err).
			WithHint("Failed to count events").
			Mark(ierr.ErrDatabase)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = types.FilterDefaultLimit
	}
	args = append(args, limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT id, tenant_id, transaction_id, external_customer_id, code, timestamp, ingested_at, properties
		FROM events FINAL
		WHERE %s
		ORDER BY timestamp DESC, ingested_at DESC, id DESC
		LIMIT ? OFFSET ?`, where)

	list, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*events.Event, error) {
	rows, err := r.store.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query events").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	list := []*events.Event{}
	for rows.Next() {
		var e events.Event
		var properties string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.TransactionID, &e.ExternalCustomerID,
			&e.Code, &e.Timestamp, &e.IngestedAt, &properties); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan event row").
				Mark(ierr.ErrDatabase)
		}
		if properties != "" {
			if err := json.Unmarshal([]byte(properties), &e.Properties); err != nil {
				return nil, ierr.WithError(err).
					WithHint("Failed to decode event properties").
					Mark(ierr.ErrDatabase)
			}
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
