package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// ============================================================================
// TEXT BUILDER — Yield growth summary for one country
// ============================================================================

// BuildGrowthText compares the mean yield (across crops) of a country's
// earliest and latest years.
func BuildGrowthText(view RecordView, country string) (*TextData, error) {
	if strings.TrimSpace(country) == "" {
		return nil, errors.Errorf("%w: country is required", ErrMissingSelection)
	}
	filtered := Only(view, DimCountry, country)
	unit := MetricYield.Label()

	if filtered.Len() == 0 {
		return &TextData{
			Value:  "No data",
			Unit:   unit,
			Period: "No data",
		}, nil
	}

	byYear := GroupAndAggregate(filtered, []string{DimYear}, string(MetricYield), AggAvg, SortNumericAsc)

	if len(byYear) < 2 {
		g := byYear[0]
		return &TextData{
			Value:    FormatNumber(g.Value, ""),
			RawValue: g.Value,
			Unit:     unit,
			Period:   g.Key,
			Count:    filtered.Len(),
			Growth: &GrowthData{
				EarliestValue:  g.Value,
				LatestValue:    g.Value,
				EarliestPeriod: g.Key,
				LatestPeriod:   g.Key,
				Direction:      "insufficient data",
			},
		}, nil
	}

	earliest := byYear[0]
	latest := byYear[len(byYear)-1]

	changeAmount := latest.Value - earliest.Value
	var changePercent float64
	if earliest.Value != 0 {
		changePercent = (changeAmount / earliest.Value) * 100
	}

	direction := "unchanged"
	if changePercent > 0.5 {
		direction = "increased"
	} else if changePercent < -0.5 {
		direction = "decreased"
	}

	absPercent := changePercent
	if absPercent < 0 {
		absPercent = -absPercent
	}
	var displayValue string
	switch direction {
	case "increased":
		displayValue = fmt.Sprintf("↑ %.1f%%", absPercent)
	case "decreased":
		displayValue = fmt.Sprintf("↓ %.1f%%", absPercent)
	default:
		displayValue = "→ No change"
	}

	return &TextData{
		Value:    displayValue,
		RawValue: changePercent,
		Unit:     unit,
		Period:   fmt.Sprintf("%s – %s", earliest.Key, latest.Key),
		Count:    filtered.Len(),
		Growth: &GrowthData{
			EarliestValue:  earliest.Value,
			LatestValue:    latest.Value,
			EarliestPeriod: earliest.Key,
			LatestPeriod:   latest.Key,
			ChangeAmount:   changeAmount,
			ChangePercent:  changePercent,
			Direction:      direction,
		},
	}, nil
}

// DerivePeriod builds a "first – last" year range from a view.
func DerivePeriod(view RecordView) string {
	if view.Len() == 0 {
		return "No data"
	}
	years := make(map[int]bool)
	for i := 0; i < view.Len(); i++ {
		years[YearAt(view, i)] = true
	}
	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)
	if len(sorted) == 1 {
		return strconv.Itoa(sorted[0])
	}
	return fmt.Sprintf("%d – %d", sorted[0], sorted[len(sorted)-1])
}
