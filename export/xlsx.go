package export

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/cropyield/engine"
)

const (
	recordsSheet = "Aggregated"
	chartSheet   = "Chart"
)

func writeRecordsXLSX(w io.Writer, records []engine.AggregatedRecord) error {
	f, err := newWorkbook(recordsSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]interface{}, 0, 8)
	for _, c := range engine.TableColumns() {
		header = append(header, c.Label)
	}
	header = append(header, "Rows")
	if err := setRow(f, recordsSheet, 1, header); err != nil {
		return err
	}

	for i, r := range records {
		row := []interface{}{
			r.Country, r.Crop, r.Year,
			r.MeanYield, r.MeanRainfall, r.MeanPesticides, r.MeanTemperature,
			r.Count,
		}
		if err := setRow(f, recordsSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(recordsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.Wrap(err, 0)
	}
	return flush(f, w)
}

func writeChartXLSX(w io.Writer, chart *engine.ChartConfig) error {
	f, err := newWorkbook(chartSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	grid := chartGrid(chart)
	header := make([]interface{}, len(grid[0]))
	for i, h := range grid[0] {
		header[i] = h
	}
	if err := setRow(f, chartSheet, 1, header); err != nil {
		return err
	}

	// Rebuild typed rows so numbers land as numeric cells.
	for r, line := range grid[1:] {
		row := make([]interface{}, len(line))
		row[0] = line[0]
		for s := range chart.Series {
			row[s+1] = nil
			for _, p := range chart.Series[s].Data {
				if p.Label == line[0] && p.Value.Valid {
					row[s+1] = p.Value.Float64
					break
				}
			}
		}
		if err := setRow(f, chartSheet, r+2, row); err != nil {
			return err
		}
	}
	if chart.Title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: chart.Title}); err != nil {
			return errors.Wrap(err, 0)
		}
	}
	return flush(f, w)
}

func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, 0)
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func flush(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return errors.WrapPrefix(err, "write xlsx", 0)
	}
	return nil
}
