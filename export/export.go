package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/go-errors/errors"

	"github.com/spektr-org/cropyield/engine"
)

// ============================================================================
// EXPORT — Aggregated tables and chart configs as JSON, CSV or XLSX
// ============================================================================

// Format is an output encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts json, pretty, csv and xlsx, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPretty, FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", errors.Errorf("%w: %q (want json, pretty, csv or xlsx)", ErrUnknownFormat, s)
}

// Binary reports whether the format should not be written to a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// ============================================================================
// RECORDS
// ============================================================================

// WriteRecords writes the aggregated table. JSON keeps the record shape;
// CSV and XLSX use the dashboard column labels.
func WriteRecords(w io.Writer, format Format, records []engine.AggregatedRecord) error {
	switch format {
	case FormatJSON, FormatPretty:
		if records == nil {
			records = []engine.AggregatedRecord{}
		}
		return WriteJSON(w, records, format == FormatPretty)
	case FormatCSV:
		table := engine.BuildTable("Aggregated", engine.NewAggregatedView(records))
		return writeTableCSV(w, table)
	case FormatXLSX:
		return writeRecordsXLSX(w, records)
	}
	return errors.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeTableCSV(w io.Writer, table *engine.TableData) error {
	cw := csv.NewWriter(w)
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Label
	}
	if err := cw.Write(headers); err != nil {
		return errors.Wrap(err, 0)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

// ============================================================================
// CHARTS
// ============================================================================

// WriteChart writes a line or stacked bar config. CSV and XLSX lay it out
// with one row per x label and one column per series; undefined values are
// left empty.
func WriteChart(w io.Writer, format Format, chart *engine.ChartConfig) error {
	if chart == nil {
		return errors.New("no chart to write")
	}
	switch format {
	case FormatJSON, FormatPretty:
		return WriteJSON(w, chart, format == FormatPretty)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(chartGrid(chart)); err != nil {
			return errors.Wrap(err, 0)
		}
		return nil
	case FormatXLSX:
		return writeChartXLSX(w, chart)
	}
	return errors.Errorf("%w: %q", ErrUnknownFormat, format)
}

// chartGrid flattens a chart into rows of strings, header first. Labels come
// from the first series that carries them, in order of first appearance.
func chartGrid(chart *engine.ChartConfig) [][]string {
	xLabel := chart.XAxis
	if xLabel == "" {
		xLabel = "Label"
	}
	header := []string{xLabel}
	if len(chart.Series) == 1 && chart.YAxis != "" {
		header = append(header, chart.YAxis)
	} else {
		for _, s := range chart.Series {
			header = append(header, s.Name)
		}
	}

	var labels []string
	seen := make(map[string]bool)
	values := make([]map[string]engine.NullFloat, len(chart.Series))
	for i, s := range chart.Series {
		values[i] = make(map[string]engine.NullFloat, len(s.Data))
		for _, p := range s.Data {
			values[i][p.Label] = p.Value
			if !seen[p.Label] {
				seen[p.Label] = true
				labels = append(labels, p.Label)
			}
		}
	}

	grid := [][]string{header}
	for _, l := range labels {
		row := []string{l}
		for i := range chart.Series {
			row = append(row, fmtNull(values[i][l]))
		}
		grid = append(grid, row)
	}
	return grid
}

// ============================================================================
// JSON
// ============================================================================

// WriteJSON encodes v followed by a newline.
func WriteJSON(w io.Writer, v interface{}, pretty bool) error {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return errors.WrapPrefix(err, "failed to marshal output", 0)
	}
	out = append(out, '\n')
	if _, err := w.Write(out); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func fmtNum(v float64) string {
	// Whole numbers → no decimals, fractional → 2 decimals
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fmtNull(v engine.NullFloat) string {
	if !v.Valid {
		return ""
	}
	return fmtNum(v.Float64)
}

