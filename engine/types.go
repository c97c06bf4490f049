package engine

import (
	"strings"

	"github.com/go-errors/errors"
)

// ============================================================================
// CROPYIELD ENGINE TYPES
// ============================================================================
// RawRecord is one row of the yield CSV as loaded. AggregatedRecord is one
// averaged (country, crop, year) bucket. Everything the dashboard shows is
// derived from []AggregatedRecord through RecordView.
// ============================================================================

// Sentinel errors shared by the engine and its callers.
var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrUnknownRatioKind = errors.New("unknown ratio kind")
	ErrMetricNotAllowed = errors.New("metric not available for this chart")
	ErrMissingSelection = errors.New("missing selection")
)

// ============================================================================
// METRICS
// ============================================================================

// Metric names one of the numeric columns of the dataset.
type Metric string

const (
	MetricYield       Metric = "yield"
	MetricRainfall    Metric = "rainfall"
	MetricPesticides  Metric = "pesticides"
	MetricTemperature Metric = "temperature"
)

// Display labels follow the dashboard's column renames. The units in the
// labels are the dashboard's wording; no conversion is applied to the values.
var metricLabels = map[Metric]string{
	MetricYield:       "Yield (Tonnes)",
	MetricRainfall:    "Average Rainfall (mm)",
	MetricPesticides:  "Pesticides (Tonnes)",
	MetricTemperature: "Average Temperature (C)",
}

// AllMetrics lists every numeric column in file order.
func AllMetrics() []Metric {
	return []Metric{MetricYield, MetricRainfall, MetricPesticides, MetricTemperature}
}

// DisplayMetrics lists the metrics offered by the choropleth selector.
func DisplayMetrics() []Metric {
	return []Metric{MetricYield, MetricRainfall, MetricTemperature}
}

// Label returns the display label, or the raw name for unknown metrics.
func (m Metric) Label() string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

// ParseMetric accepts a metric key ("rainfall") or its display label
// ("Average Rainfall (mm)"), case-insensitively.
func ParseMetric(s string) (Metric, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for m, label := range metricLabels {
		if v == string(m) || v == strings.ToLower(label) {
			return m, nil
		}
	}
	return "", errors.Errorf("%w: %q", ErrUnknownMetric, s)
}

// ============================================================================
// RECORDS
// ============================================================================

// Key identifies one aggregation bucket.
type Key struct {
	Country string `json:"country"`
	Crop    string `json:"crop"`
	Year    int    `json:"year"`
}

// RawRecord is a single row of the source CSV.
type RawRecord struct {
	Country     string  `json:"country"`
	Crop        string  `json:"crop"`
	Year        int     `json:"year"`
	Yield       float64 `json:"yield"`
	Rainfall    float64 `json:"rainfall"`
	Pesticides  float64 `json:"pesticides"`
	Temperature float64 `json:"temperature"`
}

func (r RawRecord) Key() Key { return Key{Country: r.Country, Crop: r.Crop, Year: r.Year} }

// Value returns the named metric, 0 for unknown metrics.
func (r RawRecord) Value(m Metric) float64 {
	switch m {
	case MetricYield:
		return r.Yield
	case MetricRainfall:
		return r.Rainfall
	case MetricPesticides:
		return r.Pesticides
	case MetricTemperature:
		return r.Temperature
	}
	return 0
}

// AggregatedRecord holds the means of every metric for one Key.
// Count is the number of raw rows that were averaged.
type AggregatedRecord struct {
	Country         string  `json:"country"`
	Crop            string  `json:"crop"`
	Year            int     `json:"year"`
	MeanYield       float64 `json:"meanYield"`
	MeanRainfall    float64 `json:"meanRainfall"`
	MeanPesticides  float64 `json:"meanPesticides"`
	MeanTemperature float64 `json:"meanTemperature"`
	Count           int     `json:"count"`
}

func (r AggregatedRecord) Key() Key { return Key{Country: r.Country, Crop: r.Crop, Year: r.Year} }

// Value returns the mean of the named metric, 0 for unknown metrics.
func (r AggregatedRecord) Value(m Metric) float64 {
	switch m {
	case MetricYield:
		return r.MeanYield
	case MetricRainfall:
		return r.MeanRainfall
	case MetricPesticides:
		return r.MeanPesticides
	case MetricTemperature:
		return r.MeanTemperature
	}
	return 0
}

// KeySets are the candidate values the aggregator crosses.
type KeySets struct {
	Countries []string `json:"countries"`
	Crops     []string `json:"crops"`
	Years     []int    `json:"years"`
}

// ============================================================================
// FILTERS
// ============================================================================

// Filters define which records to include.
// Keys are dimension names. Values are allowed values.
// OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions"`
}

// NewFilters returns an empty filter set.
func NewFilters() Filters {
	return Filters{Dimensions: make(map[string][]string)}
}

// With adds allowed values for a dimension. Empty values are ignored.
func (f Filters) With(dimension string, values ...string) Filters {
	if f.Dimensions == nil {
		f.Dimensions = make(map[string][]string)
	}
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			f.Dimensions[dimension] = append(f.Dimensions[dimension], v)
		}
	}
	return f
}

// HasFilter returns true if a specific dimension filter is set.
func (f Filters) HasFilter(dimension string) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[dimension]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// GROUP — Intermediate computation result
// ============================================================================

// Group represents a grouped/aggregated result.
type Group struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Count     int        `json:"count"`
	SubGroups []Group    `json:"subGroups,omitempty"`
	View      RecordView `json:"-"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how a chart should be drawn by the presentation layer.
type ChartConfig struct {
	ChartType  string        `json:"chartType"` // "line", "stacked_bar"
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Legend     string        `json:"legend,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point. Value is null when undefined.
type ChartPoint struct {
	Label string    `json:"label"`
	Value NullFloat `json:"value"`
}

// ChoroplethConfig is an animated world map: one frame per year.
type ChoroplethConfig struct {
	Title        string            `json:"title"`
	Crop         string            `json:"crop"`
	Metric       Metric            `json:"metric"`
	MetricLabel  string            `json:"metricLabel"`
	LocationMode string            `json:"locationMode"`
	ColorScale   string            `json:"colorScale"`
	RangeMin     float64           `json:"rangeMin"`
	RangeMax     float64           `json:"rangeMax"`
	Frames       []ChoroplethFrame `json:"frames"`
}

// ChoroplethFrame holds every country value for one year.
type ChoroplethFrame struct {
	Year      int               `json:"year"`
	Locations []ChoroplethPoint `json:"locations"`
}

// ChoroplethPoint is one country on the map. Yield is always carried for the
// hover label, whatever metric drives the colour.
type ChoroplethPoint struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
	Yield   float64 `json:"yield"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Summary *Summary   `json:"summary,omitempty"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number"
	Align string `json:"align"` // "left", "center", "right"
}

// Summary provides totals or aggregations for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values"`
}

// ============================================================================
// TEXT TYPES
// ============================================================================

// TextData is a single-value answer, e.g. a yield growth summary.
type TextData struct {
	Value    string      `json:"value"`
	RawValue float64     `json:"rawValue"`
	Unit     string      `json:"unit"`
	Period   string      `json:"period"`
	Count    int         `json:"count"`
	Growth   *GrowthData `json:"growth,omitempty"`
}

// GrowthData contains change-over-time metrics.
type GrowthData struct {
	EarliestValue  float64 `json:"earliestValue"`
	LatestValue    float64 `json:"latestValue"`
	EarliestPeriod string  `json:"earliestPeriod"`
	LatestPeriod   string  `json:"latestPeriod"`
	ChangeAmount   float64 `json:"changeAmount"`
	ChangePercent  float64 `json:"changePercent"`
	Direction      string  `json:"direction"` // "increased", "decreased", "unchanged", "insufficient data"
}
