package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting via RecordView
// ============================================================================
// Works on the aggregated table (or any RecordView) after Aggregate has run:
// pivots such as "mean yield across crops per country and year" are built
// here. Grouping produces SubViews (index lists into parent view).
// ============================================================================

// Aggregation names accepted by GroupAndAggregate.
const (
	AggAvg   = "avg"
	AggSum   = "sum"
	AggMax   = "max"
	AggMin   = "min"
	AggCount = "count"
)

// Sort modes accepted by SortGroups.
const (
	SortNone       = ""
	SortValueDesc  = "value_desc"
	SortValueAsc   = "value_asc"
	SortLabelAsc   = "label_asc"
	SortLabelDesc  = "label_desc"
	SortNumericAsc = "numeric_asc"
)

// NormalizeAggregation maps free-form input to a supported aggregation.
// Anything unrecognised falls back to avg.
func NormalizeAggregation(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case AggSum, AggMax, AggMin, AggCount:
		return value
	}
	return AggAvg
}

// GroupAndAggregate is the pivot pipeline: group → aggregate → sort.
// Up to two groupBy dimensions are honoured; the second becomes SubGroups.
func GroupAndAggregate(view RecordView, groupBy []string, measure, aggregation, sortBy string) []Group {
	if view.Len() == 0 {
		return nil
	}
	aggregation = NormalizeAggregation(aggregation)

	var groups []Group
	switch len(groupBy) {
	case 0:
		groups = []Group{{Key: "all", Label: "Total", View: view}}
	case 1:
		groups = groupBySingle(view, groupBy[0])
	default:
		groups = groupBySingle(view, groupBy[0])
		for i := range groups {
			groups[i].SubGroups = groupBySingle(groups[i].View, groupBy[1])
		}
	}

	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
		for j := range groups[i].SubGroups {
			aggregateGroup(&groups[i].SubGroups[j], measure, aggregation)
		}
		SortGroups(groups[i].SubGroups, sortBy)
	}

	SortGroups(groups, sortBy)
	return groups
}

func groupBySingle(view RecordView, dimension string) []Group {
	grouped := make(map[string][]int)
	order := make([]string, 0)

	for i := 0; i < view.Len(); i++ {
		key := view.Dimension(i, dimension)
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], i)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, Group{
			Key:   key,
			Label: key,
			View:  newSubView(view, grouped[key]),
		})
	}
	return groups
}

func aggregateGroup(group *Group, measure string, aggregation string) {
	group.Count = group.View.Len()
	if group.Count == 0 {
		return
	}

	switch aggregation {
	case AggSum:
		group.Value = SumMeasure(group.View, measure)
	case AggCount:
		group.Value = float64(group.Count)
	case AggMax:
		group.Value = MaxMeasure(group.View, measure)
	case AggMin:
		group.Value = MinMeasure(group.View, measure)
	default:
		group.Value = AvgMeasure(group.View, measure)
	}
}

// SumMeasure sums a named measure across a view.
func SumMeasure(view RecordView, measure string) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		total += view.Measure(i, measure)
	}
	return total
}

// AvgMeasure computes the arithmetic mean of a named measure.
func AvgMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	return SumMeasure(view, measure) / float64(n)
}

// MaxMeasure returns the largest value of a named measure, 0 on an empty view.
func MaxMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	m := math.Inf(-1)
	for i := 0; i < n; i++ {
		if v := view.Measure(i, measure); v > m {
			m = v
		}
	}
	return m
}

// MinMeasure returns the smallest value of a named measure, 0 on an empty view.
func MinMeasure(view RecordView, measure string) float64 {
	n := view.Len()
	if n == 0 {
		return 0
	}
	m := math.Inf(1)
	for i := 0; i < n; i++ {
		if v := view.Measure(i, measure); v < m {
			m = v
		}
	}
	return m
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts groups by the specified sort mode. Sorting is stable, so
// equal groups keep their grouping order.
func SortGroups(groups []Group, sortBy string) {
	switch sortBy {
	case SortValueDesc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case SortValueAsc:
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case SortLabelAsc:
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key) })
	case SortLabelDesc:
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) > strings.ToLower(groups[j].Key) })
	case SortNumericAsc:
		sort.SliceStable(groups, func(i, j int) bool { return numericKey(groups[i].Key) < numericKey(groups[j].Key) })
	}
}

func numericKey(key string) float64 {
	v, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return math.Inf(1)
	}
	return v
}

// ============================================================================
// FORMATTING UTILITIES
// ============================================================================

// FormatNumber formats a value with comma separators and two decimals,
// followed by the unit when one is given.
func FormatNumber(value float64, unit string) string {
	negative := value < 0
	if negative {
		value = -value
	}

	cents := int64(math.Round(value * 100))
	intPart := cents / 100
	decPart := cents % 100

	result := fmt.Sprintf("%s.%02d", FormatInt(intPart), decPart)
	if negative {
		result = "-" + result
	}
	if unit != "" {
		result += " " + unit
	}
	return result
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
