package events

import (
	"fmt"

	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
	"github.com/shopspring/decimal"
)

// Matches reports whether the event falls inside the usage request: code,
// customer, half-open window [start, end) and property filters.
func (p *UsageParams) Matches(e *Event) bool {
	if e.Code != p.Code {
		return false
	}
	if p.ExternalCustomerID != "" && e.ExternalCustomerID != p.ExternalCustomerID {
		return false
	}
	if !p.StartTime.IsZero() && e.Timestamp.Before(p.StartTime) {
		return false
	}
	if !p.EndTime.IsZero() && !e.Timestamp.Before(p.EndTime) {
		return false
	}
	for key, want := range p.PropertyFilters {
		raw, ok := e.Properties[key]
		if !ok || fmt.Sprintf("%v", raw) != want {
			return false
		}
	}
	return true
}

// Key is the event's identity for recurring aggregation, the string form of
// the aggregated field
func (e *Event) Key(fieldName string) (string, bool) {
	raw, ok := e.Properties[fieldName]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", raw), true
}

// FieldDecimal projects a numeric property out of the event
func (e *Event) FieldDecimal(fieldName string) (decimal.Decimal, bool) {
	raw, ok := e.Properties[fieldName]
	if !ok {
		return decimal.Zero, false
	}
	return toDecimal(raw)
}

func toDecimal(raw interface{}) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint64:
		return decimal.NewFromUint64(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case fmt.Stringer:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Aggregate reduces already-matched events to a single value. Events must be
// in timestamp-then-ingestion order for deterministic results.
func Aggregate(matched []*Event, aggregationType types.AggregationType, fieldName string) (*AggregationResult, error) {
	result := &AggregationResult{
		Value:       decimal.Zero,
		EventsCount: uint64(len(matched)),
	}

	switch aggregationType {
	case types.AggregationCount:
		result.Value = decimal.NewFromInt(int64(len(matched)))

	case types.AggregationSum:
		for _, e := range matched {
			if v, ok := e.FieldDecimal(fieldName); ok {
				result.Value = result.Value.Add(v)
			}
		}

	case types.AggregationMax:
		first := true
		for _, e := range matched {
			v, ok := e.FieldDecimal(fieldName)
			if !ok {
				continue
			}
			if first || v.GreaterThan(result.Value) {
				result.Value = v
				first = false
			}
		}

	case types.AggregationUniqueCount:
		seen := make(map[string]struct{}, len(matched))
		for _, e := range matched {
			if key, ok := e.Key(fieldName); ok {
				seen[key] = struct{}{}
			}
		}
		result.Value = decimal.NewFromInt(int64(len(seen)))

	case types.AggregationWeightedSum, types.AggregationLatest, types.AggregationCustom:
		// Reserved aggregations: declared in the metric schema but not
		// evaluated yet
		return nil, ierr.NewError("aggregation not implemented").
			WithHintf("Aggregation type %s is reserved and cannot be evaluated", aggregationType).
			Mark(ierr.ErrInvalidOperation)

	default:
		return nil, ierr.NewError("unknown aggregation type").
			WithHintf("Aggregation type %s is not recognized", aggregationType).
			Mark(ierr.ErrValidation)
	}

	return result, nil
}

// FilterRecurring drops events whose key was already observed in a previous
// period. Max keeps every event since presence, not novelty, drives it.
func FilterRecurring(matched []*Event, previousKeys map[string]struct{}, aggregationType types.AggregationType, fieldName string) []*Event {
	if aggregationType == types.AggregationMax {
		return matched
	}
	kept := make([]*Event, 0, len(matched))
	for _, e := range matched {
		key, ok := e.Key(fieldName)
		if !ok {
			continue
		}
		if _, seen := previousKeys[key]; seen {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
