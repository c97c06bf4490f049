package engine

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// ============================================================================
// DERIVED METRICS — normalised yield shares and yield ratios
// ============================================================================
// Derived values can be undefined (zero denominators). They are carried as
// NullFloat and serialised as JSON null, never as NaN or ±Inf.
// ============================================================================

// NullFloat is a float64 that may be undefined.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Defined returns v as a NullFloat; NaN and ±Inf become undefined.
func Defined(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Undefined returns an undefined NullFloat.
func Undefined() NullFloat { return NullFloat{} }

// Divide returns num/den, undefined when den is zero or either side is not
// a finite number.
func Divide(num, den float64) NullFloat {
	if den == 0 {
		return NullFloat{}
	}
	return Defined(num / den)
}

// Round2 rounds a defined value to two decimals.
func (n NullFloat) Round2() NullFloat {
	if !n.Valid {
		return n
	}
	return Defined(RoundTo2(n.Float64))
}

// String renders the value, or an empty string when undefined.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Defined(v)
	return nil
}

// ============================================================================
// NORMALISED YIELD
// ============================================================================

// YieldShare is one crop's share of a year's total yield for a country.
type YieldShare struct {
	Crop  string    `json:"crop"`
	Year  int       `json:"year"`
	Yield float64   `json:"yield"`
	Share NullFloat `json:"share"` // percent of the year's total
}

// NormaliseYield rescales each row's mean yield to its percentage of the
// total yield of its year. The view is expected to hold a single country.
// A year whose total is zero gets undefined shares.
func NormaliseYield(view RecordView) []YieldShare {
	totals := make(map[int]float64)
	for i := 0; i < view.Len(); i++ {
		totals[YearAt(view, i)] += view.Measure(i, string(MetricYield))
	}

	shares := make([]YieldShare, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		year := YearAt(view, i)
		y := view.Measure(i, string(MetricYield))
		shares = append(shares, YieldShare{
			Crop:  view.Dimension(i, DimCrop),
			Year:  year,
			Yield: y,
			Share: Divide(100*y, totals[year]),
		})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Year != shares[j].Year {
			return shares[i].Year < shares[j].Year
		}
		return shares[i].Crop < shares[j].Crop
	})
	return shares
}

// ============================================================================
// YIELD RATIOS
// ============================================================================

// RatioKind selects the denominator of a yield ratio.
type RatioKind string

const (
	RatioPesticides RatioKind = "pesticides"
	RatioRainfall   RatioKind = "rainfall"
)

// ParseRatioKind accepts "pesticides" or "rainfall", case-insensitively.
func ParseRatioKind(s string) (RatioKind, error) {
	switch RatioKind(strings.ToLower(strings.TrimSpace(s))) {
	case RatioPesticides:
		return RatioPesticides, nil
	case RatioRainfall:
		return RatioRainfall, nil
	}
	return "", errors.Errorf("%w: %q", ErrUnknownRatioKind, s)
}

// Metric returns the denominator metric.
func (k RatioKind) Metric() Metric {
	if k == RatioRainfall {
		return MetricRainfall
	}
	return MetricPesticides
}

// RatioPoint is yield divided by the ratio's denominator for one crop/year.
type RatioPoint struct {
	Crop  string    `json:"crop"`
	Year  int       `json:"year"`
	Value NullFloat `json:"value"`
}

// YieldRatios computes mean yield / mean denominator per row of view.
func YieldRatios(view RecordView, kind RatioKind) []RatioPoint {
	den := string(kind.Metric())
	points := make([]RatioPoint, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		points = append(points, RatioPoint{
			Crop:  view.Dimension(i, DimCrop),
			Year:  YearAt(view, i),
			Value: Divide(view.Measure(i, string(MetricYield)), view.Measure(i, den)),
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year < points[j].Year
		}
		return points[i].Crop < points[j].Crop
	})
	return points
}
