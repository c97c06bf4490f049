package engine

import (
	"strings"

	"go.uber.org/zap"
)

// ============================================================================
// DASHBOARD — Builds every panel for one selection
// ============================================================================
// Entry point: BuildDashboard(view, selection, opts...)
//
// Pipeline:
//   1. Trend chart over the whole view
//   2. Choropleth for the selected crop and metric
//   3. Composition and both ratio charts for the selected country
//   4. Growth summary for the selected country
//
// A panel whose selection is blank is left nil; the others are still built.
// ============================================================================

// Selection is the state of the dashboard dropdowns.
type Selection struct {
	Country   string `json:"country" query:"country"`
	Crop      string `json:"crop" query:"crop"`
	Metric    string `json:"metric" query:"metric"`
	Normalise bool   `json:"normalise" query:"normalise"`
}

// Dashboard holds every panel. Message is set when there is nothing to show.
type Dashboard struct {
	Selection      Selection         `json:"selection"`
	Period         string            `json:"period"`
	Message        string            `json:"message,omitempty"`
	Trend          *ChartConfig      `json:"trend,omitempty"`
	Choropleth     *ChoroplethConfig `json:"choropleth,omitempty"`
	Composition    *ChartConfig      `json:"composition,omitempty"`
	PesticideRatio *ChartConfig      `json:"pesticideRatio,omitempty"`
	RainfallRatio  *ChartConfig      `json:"rainfallRatio,omitempty"`
	Growth         *TextData         `json:"growth,omitempty"`
}

// BuildDashboard renders all panels for sel. An unknown or disallowed metric
// fails the call; an empty Metric means yield.
func BuildDashboard(view RecordView, sel Selection, opts ...Option) (*Dashboard, error) {
	cfg := applyOptions(opts)

	metric := MetricYield
	if strings.TrimSpace(sel.Metric) != "" {
		m, err := ParseMetric(sel.Metric)
		if err != nil {
			return nil, err
		}
		metric = m
	}
	sel.Metric = string(metric)

	dash := &Dashboard{Selection: sel, Period: DerivePeriod(view)}
	if view.Len() == 0 {
		dash.Message = "No data available to display."
		return dash, nil
	}

	cfg.Logger.Debug("building dashboard",
		zap.Int("records", view.Len()),
		zap.String("country", sel.Country),
		zap.String("crop", sel.Crop),
		zap.String("metric", sel.Metric),
		zap.Bool("normalise", sel.Normalise))

	// 1. Trend
	dash.Trend = BuildYieldTrendChart(view)

	// 2. Choropleth
	if strings.TrimSpace(sel.Crop) != "" {
		chart, err := BuildChoropleth(view, sel.Crop, metric)
		if err != nil {
			return nil, err
		}
		dash.Choropleth = chart
	}

	// 3–4. Country panels
	if strings.TrimSpace(sel.Country) == "" {
		return dash, nil
	}
	var err error
	if dash.Composition, err = BuildCompositionChart(view, sel.Country, sel.Normalise); err != nil {
		return nil, err
	}
	if dash.PesticideRatio, err = BuildRatioChart(view, sel.Country, RatioPesticides); err != nil {
		return nil, err
	}
	if dash.RainfallRatio, err = BuildRatioChart(view, sel.Country, RatioRainfall); err != nil {
		return nil, err
	}
	if dash.Growth, err = BuildGrowthText(view, sel.Country); err != nil {
		return nil, err
	}
	return dash, nil
}
