package metric

import (
	ierr "github.com/billix/billix/internal/errors"
	"github.com/billix/billix/internal/types"
)

// Metric defines how usage events reduce to a billable number. The Code is
// the primary matching field against incoming event codes; multiple charges
// can price the same metric with different filters.
type Metric struct {
	ID string `db:"id" json:"id"`

	// Code is the tenant-unique identifier referenced by events and charges
	Code string `db:"code" json:"code"`

	Name string `db:"name" json:"name"`

	// AggregationType is the reduction applied over matched events
	AggregationType types.AggregationType `db:"aggregation_type" json:"aggregation_type"`

	// FieldName is the key in $event.properties the aggregation reads.
	// Required for sum, max, unique_count, weighted_sum and latest.
	FieldName string `db:"field_name" json:"field_name,omitempty"`

	// Recurring carries aggregation state across billing periods. Only
	// count, max and latest support it.
	Recurring bool `db:"recurring" json:"recurring"`

	// RoundingFunction and RoundingPrecision shape the final aggregate
	RoundingFunction  types.RoundingFunction `db:"rounding_function" json:"rounding_function,omitempty"`
	RoundingPrecision int32                  `db:"rounding_precision" json:"rounding_precision"`

	// Expression is reserved for the custom aggregation type. The
	// evaluation hook is documented but not implemented.
	Expression string `db:"expression" json:"expression,omitempty"`

	// Filters define the possible property keys and values charges can
	// select subsets of events on
	Filters []Filter `db:"filters" json:"filters"`

	types.BaseModel
}

// Filter enumerates the allowed values for one property key of a metric,
// unique on (metric, key)
type Filter struct {
	ID     string   `db:"id" json:"id"`
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Validate validates the metric configuration
func (m *Metric) Validate() error {
	if m.Code == "" {
		return ierr.NewError("code is required").
			WithHint("Metric code is required").
			Mark(ierr.ErrValidation)
	}
	if m.Name == "" {
		return ierr.NewError("name is required").
			WithHint("Metric name is required").
			Mark(ierr.ErrValidation)
	}
	if !m.AggregationType.Validate() {
		return ierr.NewError("invalid aggregation type").
			WithHintf("Unsupported aggregation type %s", m.AggregationType).
			Mark(ierr.ErrValidation)
	}
	if m.AggregationType.RequiresField() && m.FieldName == "" {
		return ierr.NewError("field_name is required").
			WithHintf("Aggregation type %s requires field_name", m.AggregationType).
			Mark(ierr.ErrValidation)
	}
	if m.AggregationType == types.AggregationCustom && m.Expression == "" {
		return ierr.NewError("expression is required").
			WithHint("Custom aggregation requires an expression").
			Mark(ierr.ErrValidation)
	}
	if m.Recurring && !m.AggregationType.SupportsRecurring() {
		return ierr.NewError("recurring not supported").
			WithHintf("Aggregation type %s cannot be recurring", m.AggregationType).
			Mark(ierr.ErrValidation)
	}
	if err := m.RoundingFunction.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, filter := range m.Filters {
		if filter.Key == "" {
			return ierr.NewError("filter key cannot be empty").
				WithHint("Filter key cannot be empty").
				Mark(ierr.ErrValidation)
		}
		if len(filter.Values) == 0 {
			return ierr.NewError("filter values cannot be empty").
				WithHintf("Filter values cannot be empty for key %s", filter.Key).
				Mark(ierr.ErrValidation)
		}
		if seen[filter.Key] {
			return ierr.NewError("duplicate filter key").
				WithHintf("Filter key %s appears more than once", filter.Key).
				Mark(ierr.ErrValidation)
		}
		seen[filter.Key] = true
	}
	return nil
}
