package engine

import "strconv"

// ============================================================================
// RECORD VIEW — Zero-Copy Data Access Interface
// ============================================================================
// Builders never own the aggregated table. They read through this interface.
//
// Implementations:
//   DomainView[T]  — reads typed structs via accessor functions (zero-copy)
//   SubView        — filtered subset (indices into parent, zero-copy)
// ============================================================================

// Dimension keys understood by the yield views.
const (
	DimCountry = "country"
	DimCrop    = "crop"
	DimYear    = "year"

	// MeasureCount is the number of raw rows behind an aggregated row.
	MeasureCount = "count"
)

// RecordView provides indexed access to a dataset.
// Builders call Dimension/Measure in tight loops; keep implementations fast.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string
	MeasureKeys() []string
}

// ============================================================================
// YIELD VIEWS
// ============================================================================

var aggregatedAdapter = NewDomainAdapter[AggregatedRecord]().
	Dimension(DimCountry, func(r AggregatedRecord) string { return r.Country }).
	Dimension(DimCrop, func(r AggregatedRecord) string { return r.Crop }).
	Dimension(DimYear, func(r AggregatedRecord) string { return strconv.Itoa(r.Year) }).
	Measure(string(MetricYield), func(r AggregatedRecord) float64 { return r.MeanYield }).
	Measure(string(MetricRainfall), func(r AggregatedRecord) float64 { return r.MeanRainfall }).
	Measure(string(MetricPesticides), func(r AggregatedRecord) float64 { return r.MeanPesticides }).
	Measure(string(MetricTemperature), func(r AggregatedRecord) float64 { return r.MeanTemperature }).
	Measure(MeasureCount, func(r AggregatedRecord) float64 { return float64(r.Count) })

var rawAdapter = NewDomainAdapter[RawRecord]().
	Dimension(DimCountry, func(r RawRecord) string { return r.Country }).
	Dimension(DimCrop, func(r RawRecord) string { return r.Crop }).
	Dimension(DimYear, func(r RawRecord) string { return strconv.Itoa(r.Year) }).
	Measure(string(MetricYield), func(r RawRecord) float64 { return r.Yield }).
	Measure(string(MetricRainfall), func(r RawRecord) float64 { return r.Rainfall }).
	Measure(string(MetricPesticides), func(r RawRecord) float64 { return r.Pesticides }).
	Measure(string(MetricTemperature), func(r RawRecord) float64 { return r.Temperature })

// NewAggregatedView wraps the aggregated table as a RecordView.
func NewAggregatedView(records []AggregatedRecord) RecordView {
	return aggregatedAdapter.Bind(records)
}

// NewRawView wraps raw rows as a RecordView.
func NewRawView(records []RawRecord) RecordView {
	return rawAdapter.Bind(records)
}

// YearAt parses the year dimension at index i. Returns 0 if it is not a number.
func YearAt(view RecordView, i int) int {
	y, err := strconv.Atoi(view.Dimension(i, DimYear))
	if err != nil {
		return 0
	}
	return y
}

// ============================================================================
// SUB VIEW — filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds indices into the parent — no data copy.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// ============================================================================
// DOMAIN ADAPTER — Zero-copy typed struct access
// ============================================================================

// DomainAdapter builds a RecordView from typed structs.
// Declare once, bind many times.
type DomainAdapter[T any] struct {
	dimOrder []string
	mesOrder []string
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
}

// NewDomainAdapter creates a new adapter for type T.
func NewDomainAdapter[T any]() *DomainAdapter[T] {
	return &DomainAdapter[T]{
		dims: make(map[string]func(T) string),
		meas: make(map[string]func(T) float64),
	}
}

// Dimension registers a dimension accessor.
func (a *DomainAdapter[T]) Dimension(key string, fn func(T) string) *DomainAdapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure registers a measure accessor.
func (a *DomainAdapter[T]) Measure(key string, fn func(T) float64) *DomainAdapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Bind creates a RecordView from a data slice. Zero-copy — holds reference.
func (a *DomainAdapter[T]) Bind(data []T) RecordView {
	return &DomainView[T]{
		data:     data,
		dims:     a.dims,
		meas:     a.meas,
		dimKeys:  a.dimOrder,
		measKeys: a.mesOrder,
	}
}

// DomainView reads typed struct fields via registered accessor functions.
type DomainView[T any] struct {
	data     []T
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
	dimKeys  []string
	measKeys []string
}

func (v *DomainView[T]) Len() int { return len(v.data) }

func (v *DomainView[T]) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.data) {
		return ""
	}
	if fn, ok := v.dims[key]; ok {
		return fn(v.data[i])
	}
	return ""
}

func (v *DomainView[T]) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.data) {
		return 0
	}
	if fn, ok := v.meas[key]; ok {
		return fn(v.data[i])
	}
	return 0
}

func (v *DomainView[T]) DimensionKeys() []string { return v.dimKeys }
func (v *DomainView[T]) MeasureKeys() []string   { return v.measKeys }
