package helpers

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
	"github.com/spf13/afero"

	"github.com/spektr-org/cropyield/engine"
	"github.com/spektr-org/cropyield/schema"
)

// ============================================================================
// CSV HELPER — Parses the yield CSV into []engine.RawRecord
// ============================================================================
// The index column and any unmapped column are dropped. Value columns are
// read by their source headers; the rename to display labels lives in the
// schema, values are never converted.
// ============================================================================

// ParseResult is the outcome of parsing one file.
type ParseResult struct {
	Records []engine.RawRecord
	Headers []string
	Dropped []string // unexpected headers, besides the index column
	Skipped int      // data rows that could not be parsed
}

// ParseCSV reads every row of r into RawRecords using sch to locate columns.
// A missing required header fails the whole parse. Malformed rows are
// skipped and counted: a bad year, a blank or non-numeric value cell, or a
// NaN/Inf value.
func ParseCSV(r io.Reader, sch schema.Config) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Errorf("%w: empty file", schema.ErrMissingColumns)
	}
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to read CSV headers", 0)
	}
	headers = append([]string(nil), headers...)

	cols, err := sch.Resolve(headers)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{Headers: headers}
	mapped := make(map[int]bool, len(cols))
	for _, i := range cols {
		mapped[i] = true
	}
	for i, h := range headers {
		if !mapped[i] && !sch.IsIndexColumn(h) {
			res.Dropped = append(res.Dropped, h)
		}
	}

	dim := func(key string) int { return cols[dimensionColumn(sch, key)] }
	mes := func(m engine.Metric) int { return cols[measureColumn(sch, m)] }
	countryCol, cropCol, yearCol := dim(engine.DimCountry), dim(engine.DimCrop), dim(engine.DimYear)
	yieldCol, rainCol := mes(engine.MetricYield), mes(engine.MetricRainfall)
	pestCol, tempCol := mes(engine.MetricPesticides), mes(engine.MetricTemperature)
	width := 0
	for _, i := range cols {
		if i+1 > width {
			width = i + 1
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(row) < width {
			res.Skipped++
			continue
		}

		year, err := parseYear(row[yearCol])
		if err != nil {
			res.Skipped++
			continue
		}
		var vals [4]float64
		ok := true
		for j, c := range []int{yieldCol, rainCol, pestCol, tempCol} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			res.Skipped++
			continue
		}

		res.Records = append(res.Records, engine.RawRecord{
			Country:     row[countryCol],
			Crop:        row[cropCol],
			Year:        year,
			Yield:       vals[0],
			Rainfall:    vals[1],
			Pesticides:  vals[2],
			Temperature: vals[3],
		})
	}

	return res, nil
}

// LoadCSV opens path on fs and parses it.
func LoadCSV(fs afero.Fs, path string, sch schema.Config) (*ParseResult, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WrapPrefix(err, "open "+path, 0)
	}
	defer f.Close()
	return ParseCSV(f, sch)
}

// parseYear accepts "1990" and the float form "1990.0" some exports produce.
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, errors.Errorf("invalid year %q", s)
	}
	return int(f), nil
}

func dimensionColumn(sch schema.Config, key string) string {
	for _, d := range sch.Dimensions {
		if d.Key == key {
			return d.Column
		}
	}
	return ""
}

func measureColumn(sch schema.Config, m engine.Metric) string {
	for _, ms := range sch.Measures {
		if ms.Key == m {
			return ms.Column
		}
	}
	return ""
}
