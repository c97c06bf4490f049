package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var chartRecords = []AggregatedRecord{
	{Country: "Albania", Crop: "Maize", Year: 1990, MeanYield: 36614, MeanRainfall: 1485, MeanPesticides: 121, MeanTemperature: 16.38, Count: 2},
	{Country: "Albania", Crop: "Potatoes", Year: 1990, MeanYield: 66667, MeanRainfall: 1485, MeanPesticides: 121, MeanTemperature: 16.37, Count: 1},
	{Country: "Albania", Crop: "Maize", Year: 1991, MeanYield: 29068, MeanRainfall: 1485, MeanPesticides: 0, MeanTemperature: 15.36, Count: 1},
	{Country: "Algeria", Crop: "Maize", Year: 1990, MeanYield: 6900, MeanRainfall: 89, MeanPesticides: 3.4, MeanTemperature: 17.2, Count: 1},
}

func TestBuildYieldTrendChart(t *testing.T) {
	chart := BuildYieldTrendChart(NewAggregatedView(chartRecords))

	require.NotNil(t, chart)
	require.Equal(t, "line", chart.ChartType)
	require.Len(t, chart.Series, 2)

	albania := chart.Series[0]
	require.Equal(t, "Albania", albania.Name)
	require.Equal(t, "1990", albania.Data[0].Label)
	require.Equal(t, Defined(51640.5), albania.Data[0].Value)
	require.Equal(t, Defined(29068), albania.Data[1].Value)

	algeria := chart.Series[1]
	require.Equal(t, Defined(6900), algeria.Data[0].Value)
	require.False(t, algeria.Data[1].Value.Valid, "Algeria has no 1991 data")
	require.Len(t, chart.Colors, 2)
}

func TestBuildYieldTrendChartEmpty(t *testing.T) {
	require.Nil(t, BuildYieldTrendChart(NewAggregatedView(nil)))
}

func TestBuildChoropleth(t *testing.T) {
	view := NewAggregatedView(chartRecords)

	chart, err := BuildChoropleth(view, "maize", MetricRainfall)
	require.NoError(t, err)
	require.Equal(t, "blues", chart.ColorScale)
	require.Equal(t, 1485.0, chart.RangeMax)
	require.Equal(t, "Average Rainfall (mm)", chart.MetricLabel)
	require.Len(t, chart.Frames, 2)
	require.Equal(t, 1990, chart.Frames[0].Year)
	require.Equal(t, []ChoroplethPoint{
		{Country: "Albania", Value: 1485, Yield: 36614},
		{Country: "Algeria", Value: 89, Yield: 6900},
	}, chart.Frames[0].Locations)
	require.Equal(t, 1991, chart.Frames[1].Year)
}

func TestBuildChoroplethRejectsPesticides(t *testing.T) {
	_, err := BuildChoropleth(NewAggregatedView(chartRecords), "Maize", MetricPesticides)
	require.ErrorIs(t, err, ErrMetricNotAllowed)

	_, err = BuildChoropleth(NewAggregatedView(chartRecords), " ", MetricYield)
	require.ErrorIs(t, err, ErrMissingSelection)
}

func TestBuildCompositionChart(t *testing.T) {
	view := NewAggregatedView(chartRecords)

	chart, err := BuildCompositionChart(view, "Albania", false)
	require.NoError(t, err)
	require.Equal(t, "stacked_bar", chart.ChartType)
	require.Equal(t, "Yield (Tonnes)", chart.YAxis)
	require.Len(t, chart.Series, 2)
	require.Equal(t, "Maize", chart.Series[0].Name)
	require.Equal(t, Defined(36614), chart.Series[0].Data[0].Value)
	require.Equal(t, "Potatoes", chart.Series[1].Name)
	require.False(t, chart.Series[1].Data[1].Value.Valid)

	normalised, err := BuildCompositionChart(view, "Albania", true)
	require.NoError(t, err)
	require.Equal(t, "Normalised Yield (%)", normalised.YAxis)
	sum := normalised.Series[0].Data[0].Value.Float64 + normalised.Series[1].Data[0].Value.Float64
	require.InDelta(t, 100, sum, 0.02)
	require.Equal(t, Defined(100), normalised.Series[0].Data[1].Value)
}

func TestBuildCompositionChartUnknownCountry(t *testing.T) {
	chart, err := BuildCompositionChart(NewAggregatedView(chartRecords), "Narnia", true)
	require.NoError(t, err)
	require.Empty(t, chart.Series)

	_, err = BuildCompositionChart(NewAggregatedView(chartRecords), "", true)
	require.ErrorIs(t, err, ErrMissingSelection)
}

func TestBuildRatioChartNullForZeroPesticides(t *testing.T) {
	chart, err := BuildRatioChart(NewAggregatedView(chartRecords), "Albania", RatioPesticides)
	require.NoError(t, err)
	require.Equal(t, "Yield per tonne of pesticide used (Tonnes)", chart.YAxis)

	maize := chart.Series[0]
	require.Equal(t, "Maize", maize.Name)
	require.Equal(t, Defined(RoundTo2(36614.0/121)), maize.Data[0].Value)
	require.False(t, maize.Data[1].Value.Valid)

	b, err := json.Marshal(maize.Data[1])
	require.NoError(t, err)
	require.JSONEq(t, `{"label":"1991","value":null}`, string(b))
}

func TestBuildRatioChartUnknownKind(t *testing.T) {
	_, err := BuildRatioChart(NewAggregatedView(chartRecords), "Albania", RatioKind("sun"))
	require.ErrorIs(t, err, ErrUnknownRatioKind)
}
