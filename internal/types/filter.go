package types

import (
	"strings"

	ierr "github.com/billix/billix/internal/errors"
)

const (
	FilterDefaultLimit = 50
	FilterMaxLimit     = 1000
)

// SortDirection is the direction of an order_by clause
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Filter carries the common list parameters accepted by every list endpoint.
// OrderBy is the raw `field:direction` value and must be validated against a
// per-entity whitelist before it reaches the query layer.
type Filter struct {
	Skip    int    `form:"skip" json:"skip"`
	Limit   int    `form:"limit" json:"limit"`
	OrderBy string `form:"order_by" json:"order_by"`
}

func NewDefaultFilter() Filter {
	return Filter{Limit: FilterDefaultLimit}
}

// GetLimit returns the effective page size
func (f Filter) GetLimit() int {
	if f.Limit <= 0 {
		return FilterDefaultLimit
	}
	if f.Limit > FilterMaxLimit {
		return FilterMaxLimit
	}
	return f.Limit
}

func (f Filter) GetSkip() int {
	if f.Skip < 0 {
		return 0
	}
	return f.Skip
}

// Sort is a validated order_by clause
type Sort struct {
	Field     string
	Direction SortDirection
}

// ParseOrderBy validates a raw order_by value against the allowed fields for
// the entity. An empty value falls back to the default field descending.
func (f Filter) ParseOrderBy(allowed []string, defaultField string) (Sort, error) {
	if f.OrderBy == "" {
		return Sort{Field: defaultField, Direction: SortDesc}, nil
	}

	parts := strings.SplitN(f.OrderBy, ":", 2)
	field := parts[0]
	direction := SortDesc
	if len(parts) == 2 {
		switch SortDirection(strings.ToLower(parts[1])) {
		case SortAsc:
			direction = SortAsc
		case SortDesc:
			direction = SortDesc
		default:
			return Sort{}, ierr.NewError("invalid sort direction").
				WithHintf("Sort direction must be one of asc, desc, got %s", parts[1]).
				Mark(ierr.ErrValidation)
		}
	}

	for _, a := range allowed {
		if a == field {
			return Sort{Field: field, Direction: direction}, nil
		}
	}

	return Sort{}, ierr.NewError("unknown sort field").
		WithHintf("Field %s is not sortable for this resource", field).
		WithReportableDetails(map[string]interface{}{
			"field":   field,
			"allowed": allowed,
		}).
		Mark(ierr.ErrValidation)
}
