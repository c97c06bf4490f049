package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// ============================================================================
// CHART BUILDER — dashboard figures from the aggregated table
// ============================================================================
// Each builder is a plain function of (view, selections). Callers read the
// current selections and call the builder again whenever they change.
// ============================================================================

// Pastel palette used for every categorical series.
var defaultColors = []string{
	"#66C5CC", "#F6CF71", "#F89C74", "#DCB0F2", "#87C55F",
	"#9EB9F3", "#FE88B1", "#C9DB74", "#8BE0A4", "#B497E7", "#B3B3B3",
}

// Colour scales for the choropleth, per display metric.
var choroplethScales = map[Metric]string{
	MetricYield:       "greens",
	MetricRainfall:    "blues",
	MetricTemperature: "reds",
}

// BuildYieldTrendChart draws one line per country: the mean yield across
// crops for every year. Returns nil for an empty view.
func BuildYieldTrendChart(view RecordView) *ChartConfig {
	if view.Len() == 0 {
		return nil
	}
	groups := GroupAndAggregate(view, []string{DimYear, DimCountry}, string(MetricYield), AggAvg, SortNumericAsc)

	config := &ChartConfig{
		ChartType:  "line",
		Title:      "Total crop yield per country per year.",
		XAxis:      "Year",
		YAxis:      "Total crop yield (Tonnes)",
		Legend:     "Country",
		ShowLegend: true,
		ShowGrid:   true,
	}
	config.Series = buildMultiSeries(groups)
	config.Colors = assignColors(len(config.Series))
	return config
}

// BuildChoropleth builds the animated map for one crop, coloured by metric.
// Only the display metrics (yield, rainfall, temperature) are allowed.
func BuildChoropleth(view RecordView, crop string, metric Metric) (*ChoroplethConfig, error) {
	scale, ok := choroplethScales[metric]
	if !ok {
		return nil, errors.Errorf("%w: %q", ErrMetricNotAllowed, metric)
	}
	if strings.TrimSpace(crop) == "" {
		return nil, errors.Errorf("%w: crop is required", ErrMissingSelection)
	}

	filtered := Only(view, DimCrop, crop)
	config := &ChoroplethConfig{
		Title:        "Animated choropleth world map showing " + metric.Label() + " per country.",
		Crop:         crop,
		Metric:       metric,
		MetricLabel:  metric.Label(),
		LocationMode: "country names",
		ColorScale:   scale,
		RangeMin:     0,
		RangeMax:     MaxMeasure(filtered, string(metric)),
		Frames:       []ChoroplethFrame{},
	}

	byYear := GroupAndAggregate(filtered, []string{DimYear}, string(metric), AggAvg, SortNumericAsc)
	for _, g := range byYear {
		year, _ := strconv.Atoi(g.Key)
		frame := ChoroplethFrame{Year: year, Locations: make([]ChoroplethPoint, 0, g.View.Len())}
		for i := 0; i < g.View.Len(); i++ {
			frame.Locations = append(frame.Locations, ChoroplethPoint{
				Country: g.View.Dimension(i, DimCountry),
				Value:   RoundTo2(g.View.Measure(i, string(metric))),
				Yield:   RoundTo2(g.View.Measure(i, string(MetricYield))),
			})
		}
		sort.SliceStable(frame.Locations, func(a, b int) bool {
			return frame.Locations[a].Country < frame.Locations[b].Country
		})
		config.Frames = append(config.Frames, frame)
	}
	return config, nil
}

// BuildCompositionChart stacks one bar segment per crop for every year of a
// country. With normalise set, segments are each crop's percentage of the
// year's total yield.
func BuildCompositionChart(view RecordView, country string, normalise bool) (*ChartConfig, error) {
	if strings.TrimSpace(country) == "" {
		return nil, errors.Errorf("%w: country is required", ErrMissingSelection)
	}
	filtered := Only(view, DimCountry, country)

	config := &ChartConfig{
		ChartType:  "stacked_bar",
		Title:      fmt.Sprintf("Crop composition per year, for %s.", country),
		XAxis:      "Year",
		YAxis:      MetricYield.Label(),
		Legend:     "Crop",
		ShowLegend: true,
		ShowGrid:   true,
		Series:     []ChartSeries{},
	}
	if normalise {
		config.YAxis = "Normalised Yield (%)"
	}
	if filtered.Len() == 0 {
		return config, nil
	}

	cells := make(map[string]map[int]NullFloat)
	if normalise {
		for _, s := range NormaliseYield(filtered) {
			setCell(cells, s.Crop, s.Year, s.Share)
		}
	} else {
		for i := 0; i < filtered.Len(); i++ {
			setCell(cells, filtered.Dimension(i, DimCrop), YearAt(filtered, i), Defined(filtered.Measure(i, string(MetricYield))))
		}
	}

	config.Series = seriesFromCells(cells, yearsOf(filtered))
	config.Colors = assignColors(len(config.Series))
	return config, nil
}

// BuildRatioChart draws yield per unit of pesticides or rainfall, one line per
// crop, for a country. Undefined ratios are null points.
func BuildRatioChart(view RecordView, country string, kind RatioKind) (*ChartConfig, error) {
	if strings.TrimSpace(country) == "" {
		return nil, errors.Errorf("%w: country is required", ErrMissingSelection)
	}
	filtered := Only(view, DimCountry, country)

	config := &ChartConfig{
		ChartType:  "line",
		XAxis:      "Year",
		Legend:     "Crop",
		ShowLegend: true,
		ShowGrid:   true,
		Series:     []ChartSeries{},
	}
	switch kind {
	case RatioPesticides:
		config.Title = fmt.Sprintf("Crop yield per tonne of pesticide used per year, for %s.", country)
		config.YAxis = "Yield per tonne of pesticide used (Tonnes)"
	case RatioRainfall:
		config.Title = fmt.Sprintf("Crop yield per mm of rainfall per year, for %s.", country)
		config.YAxis = "Yield per mm of rainfall (Tonnes)"
	default:
		return nil, errors.Errorf("%w: %q", ErrUnknownRatioKind, kind)
	}
	if filtered.Len() == 0 {
		return config, nil
	}

	cells := make(map[string]map[int]NullFloat)
	for _, p := range YieldRatios(filtered, kind) {
		setCell(cells, p.Crop, p.Year, p.Value)
	}
	config.Series = seriesFromCells(cells, yearsOf(filtered))
	config.Colors = assignColors(len(config.Series))
	return config, nil
}

// ============================================================================
// SERIES BUILDERS
// ============================================================================

// buildMultiSeries turns groups (x values) with SubGroups (series) into one
// series per sub key. A series with no value at an x gets a null point.
func buildMultiSeries(groups []Group) []ChartSeries {
	subKeySet := make(map[string]bool)
	for _, g := range groups {
		for _, sg := range g.SubGroups {
			subKeySet[sg.Key] = true
		}
	}
	subKeys := make([]string, 0, len(subKeySet))
	for k := range subKeySet {
		subKeys = append(subKeys, k)
	}
	sort.Strings(subKeys)

	seriesMap := make(map[string][]ChartPoint, len(subKeys))
	for _, g := range groups {
		lookup := make(map[string]float64, len(g.SubGroups))
		for _, sg := range g.SubGroups {
			lookup[sg.Key] = sg.Value
		}
		for _, key := range subKeys {
			p := ChartPoint{Label: g.Label}
			if v, ok := lookup[key]; ok {
				p.Value = Defined(RoundTo2(v))
			}
			seriesMap[key] = append(seriesMap[key], p)
		}
	}

	series := make([]ChartSeries, 0, len(subKeys))
	for i, key := range subKeys {
		series = append(series, ChartSeries{
			Name:  key,
			Data:  seriesMap[key],
			Color: defaultColors[i%len(defaultColors)],
		})
	}
	return series
}

func setCell(cells map[string]map[int]NullFloat, series string, year int, v NullFloat) {
	row, ok := cells[series]
	if !ok {
		row = make(map[int]NullFloat)
		cells[series] = row
	}
	row[year] = v
}

// seriesFromCells emits one series per name (sorted) with a point for every
// year; missing cells are null.
func seriesFromCells(cells map[string]map[int]NullFloat, years []int) []ChartSeries {
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)

	series := make([]ChartSeries, 0, len(names))
	for i, name := range names {
		points := make([]ChartPoint, 0, len(years))
		for _, y := range years {
			points = append(points, ChartPoint{
				Label: strconv.Itoa(y),
				Value: cells[name][y].Round2(),
			})
		}
		series = append(series, ChartSeries{
			Name:  name,
			Data:  points,
			Color: defaultColors[i%len(defaultColors)],
		})
	}
	return series
}

func yearsOf(view RecordView) []int {
	seen := make(map[int]bool)
	var years []int
	for i := 0; i < view.Len(); i++ {
		y := YearAt(view, i)
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
