package schema

import (
	"sort"
	"strings"

	"github.com/go-errors/errors"

	"github.com/spektr-org/cropyield/engine"
)

// ============================================================================
// SCHEMA — Describes the shape of the yield CSV
// ============================================================================
// Maps source headers to record fields and display labels. The loader uses it
// to find columns; the dashboard uses it for labels.
// ============================================================================

// ErrMissingColumns is returned when a required header is absent.
var ErrMissingColumns = errors.New("missing required columns")

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// IndexColumns are headers dropped on load (the pandas index column).
	IndexColumns []string `json:"indexColumns,omitempty" yaml:"indexColumns,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`
}

// DimensionMeta describes a string (or year) field used for grouping/filtering.
type DimensionMeta struct {
	Key         string `json:"key" yaml:"key"`
	Column      string `json:"column" yaml:"column"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	IsTemporal  bool   `json:"isTemporal,omitempty" yaml:"isTemporal,omitempty"`
}

// MeasureMeta describes a numeric field. Column is the source header and
// DisplayName the renamed label.
type MeasureMeta struct {
	Key         engine.Metric `json:"key" yaml:"key"`
	Column      string        `json:"column" yaml:"column"`
	DisplayName string        `json:"displayName" yaml:"displayName"`
	Unit        string        `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// YieldDataset returns the schema of the crop yield CSV. The renamed labels
// keep the dashboard's unit wording although values stay in source units
// (hg/ha, mm per year, tonnes, °C).
func YieldDataset() Config {
	return Config{
		Name:         "Crop yield",
		Version:      "1.0",
		Description:  "Global agricultural yield with rainfall, pesticide use and temperature",
		IndexColumns: []string{"", "Unnamed: 0"},
		Dimensions: []DimensionMeta{
			{Key: engine.DimCountry, Column: "Area", DisplayName: "Country"},
			{Key: engine.DimCrop, Column: "Item", DisplayName: "Crop"},
			{Key: engine.DimYear, Column: "Year", DisplayName: "Year", IsTemporal: true},
		},
		Measures: []MeasureMeta{
			{Key: engine.MetricYield, Column: "hg/ha_yield", DisplayName: engine.MetricYield.Label(), Unit: "hg/ha"},
			{Key: engine.MetricRainfall, Column: "average_rain_fall_mm_per_year", DisplayName: engine.MetricRainfall.Label(), Unit: "mm/year"},
			{Key: engine.MetricPesticides, Column: "pesticides_tonnes", DisplayName: engine.MetricPesticides.Label(), Unit: "tonnes"},
			{Key: engine.MetricTemperature, Column: "avg_temp", DisplayName: engine.MetricTemperature.Label(), Unit: "C"},
		},
	}
}

// RequiredColumns lists every header the loader needs.
func (c Config) RequiredColumns() []string {
	cols := make([]string, 0, len(c.Dimensions)+len(c.Measures))
	for _, d := range c.Dimensions {
		cols = append(cols, d.Column)
	}
	for _, m := range c.Measures {
		cols = append(cols, m.Column)
	}
	return cols
}

// IsIndexColumn reports whether header is a dropped index column.
func (c Config) IsIndexColumn(header string) bool {
	h := strings.TrimSpace(header)
	for _, ic := range c.IndexColumns {
		if h == ic {
			return true
		}
	}
	return false
}

// Resolve maps every required header to its position in headers.
// Headers are compared after trimming; a UTF-8 BOM on the first header is
// ignored. Every missing column is named in the error.
func (c Config) Resolve(headers []string) (map[string]int, error) {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	var missing []string
	out := make(map[string]int)
	for _, col := range c.RequiredColumns() {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		out[col] = i
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return out, nil
}
