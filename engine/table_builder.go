package engine

import (
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE BUILDER — Produces TableData for the aggregated and raw tables
// ============================================================================

var tableColumns = []Column{
	{Key: DimCountry, Label: "Area", Type: "text", Align: "left"},
	{Key: DimCrop, Label: "Item", Type: "text", Align: "left"},
	{Key: DimYear, Label: "Year", Type: "number", Align: "center"},
	{Key: string(MetricYield), Label: MetricYield.Label(), Type: "number", Align: "right"},
	{Key: string(MetricRainfall), Label: MetricRainfall.Label(), Type: "number", Align: "right"},
	{Key: string(MetricPesticides), Label: MetricPesticides.Label(), Type: "number", Align: "right"},
	{Key: string(MetricTemperature), Label: MetricTemperature.Label(), Type: "number", Align: "right"},
}

// TableColumns returns the column layout shared by both tables.
func TableColumns() []Column {
	cols := make([]Column, len(tableColumns))
	copy(cols, tableColumns)
	return cols
}

// BuildTable renders a view of the aggregated table, one row per bucket, with
// a trailing column for the number of raw rows behind each mean.
func BuildTable(title string, view RecordView) *TableData {
	columns := append(TableColumns(), Column{Key: MeasureCount, Label: "Rows", Type: "number", Align: "center"})
	rows := make([][]string, 0, view.Len())
	var raw int64

	for i := 0; i < view.Len(); i++ {
		row := make([]string, 0, len(columns))
		row = append(row,
			view.Dimension(i, DimCountry),
			view.Dimension(i, DimCrop),
			view.Dimension(i, DimYear),
		)
		for _, m := range AllMetrics() {
			row = append(row, formatCell(view.Measure(i, string(m))))
		}
		n := int64(view.Measure(i, MeasureCount))
		row = append(row, strconv.FormatInt(n, 10))
		raw += n
		rows = append(rows, row)
	}

	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
		Summary: &Summary{
			Label: fmt.Sprintf("Total (%d buckets)", view.Len()),
			Values: map[string]string{
				MeasureCount: FormatInt(raw),
			},
		},
	}
}

// BuildRawTable renders raw rows as loaded.
func BuildRawTable(title string, records []RawRecord) *TableData {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{r.Country, r.Crop, strconv.Itoa(r.Year)}
		for _, m := range AllMetrics() {
			row = append(row, formatCell(r.Value(m)))
		}
		rows = append(rows, row)
	}
	return &TableData{
		Title:   title,
		Columns: TableColumns(),
		Rows:    rows,
		Summary: &Summary{
			Label:  fmt.Sprintf("Total (%d records)", len(records)),
			Values: map[string]string{},
		},
	}
}

func formatCell(v float64) string {
	return strconv.FormatFloat(RoundTo2(v), 'f', -1, 64)
}
