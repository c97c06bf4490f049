package engine

import (
	"strings"
)

// ApplyFilters returns a view of the rows matching every dimension filter.
// Dimensions are AND-combined; values within a dimension are OR-combined and
// compared case-insensitively after trimming. An empty filter returns view.
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	sets := make(map[string]map[string]bool)
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pass := true
		for dim, set := range sets {
			if !set[normalizeFilterValue(view.Dimension(i, dim))] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

// Only narrows view to the rows whose dimension equals value exactly. Unlike
// ApplyFilters it neither trims nor folds case, so it selects the same rows
// Aggregate put in that bucket.
func Only(view RecordView, dimension, value string) RecordView {
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if view.Dimension(i, dimension) == value {
			indices = append(indices, i)
		}
	}
	return newSubView(view, indices)
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[normalizeFilterValue(item)] = true
	}
	return set
}

func normalizeFilterValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
