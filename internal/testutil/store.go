package testutil

import "github.com/billix/billix/internal/types"

// paginate applies the filter's limit and offset to an already-sorted slice
func paginate[T any](items []T, filter types.Filter) []T {
	skip := filter.GetSkip()
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	limit := filter.GetLimit()
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
