package types

import ierr "github.com/billix/billix/internal/errors"

// AggregationType is the reduction applied over matched events to produce
// the billable number for a metric.
type AggregationType string

const (
	AggregationCount       AggregationType = "count"
	AggregationSum         AggregationType = "sum"
	AggregationMax         AggregationType = "max"
	AggregationUniqueCount AggregationType = "unique_count"
	AggregationWeightedSum AggregationType = "weighted_sum"
	AggregationLatest      AggregationType = "latest"
	AggregationCustom      AggregationType = "custom"
)

func (t AggregationType) Validate() bool {
	switch t {
	case AggregationCount, AggregationSum, AggregationMax,
		AggregationUniqueCount, AggregationWeightedSum,
		AggregationLatest, AggregationCustom:
		return true
	}
	return false
}

// RequiresField reports whether the aggregation reads a property field
func (t AggregationType) RequiresField() bool {
	switch t {
	case AggregationSum, AggregationMax, AggregationUniqueCount,
		AggregationWeightedSum, AggregationLatest:
		return true
	}
	return false
}

// SupportsRecurring reports whether the aggregation can carry state across
// billing periods
func (t AggregationType) SupportsRecurring() bool {
	switch t {
	case AggregationCount, AggregationMax, AggregationLatest:
		return true
	}
	return false
}

// RoundingFunction is applied to the final aggregated value
type RoundingFunction string

const (
	RoundingRound RoundingFunction = "round"
	RoundingCeil  RoundingFunction = "ceil"
	RoundingFloor RoundingFunction = "floor"
)

func (r RoundingFunction) Validate() error {
	switch r {
	case "", RoundingRound, RoundingCeil, RoundingFloor:
		return nil
	}
	return ierr.NewError("invalid rounding function").
		WithHintf("Rounding function must be one of round, ceil, floor, got %s", r).
		Mark(ierr.ErrValidation)
}
