package engine

import (
	"math"
	"sort"
	"strings"
)

// ============================================================================
// AGGREGATE — Mean per (country, crop, year)
// ============================================================================
// Rows with a blank country are dropped first. The remaining rows are summed
// into a grouped index in one pass, then every candidate triple that has at
// least one row becomes an AggregatedRecord. Triples with no rows produce
// nothing, not a zero row.
// ============================================================================

// Aggregate averages every metric over the records sharing a
// (country, crop, year) key, for each key in countries × crops × years.
// The result is sorted by country, then year, then crop.
func Aggregate(records []RawRecord, countries []string, crops []string, years []int) []AggregatedRecord {
	index := BuildIndex(records)
	if index.Len() == 0 || len(countries) == 0 || len(crops) == 0 || len(years) == 0 {
		return []AggregatedRecord{}
	}

	countrySet := make(map[string]bool, len(countries))
	for _, c := range countries {
		countrySet[c] = true
	}
	cropSet := make(map[string]bool, len(crops))
	for _, c := range crops {
		cropSet[c] = true
	}
	yearSet := make(map[int]bool, len(years))
	for _, y := range years {
		yearSet[y] = true
	}

	// Walking the index is equivalent to walking the cross product: a bucket
	// exists only for triples that have rows.
	out := make([]AggregatedRecord, 0, index.Len())
	for _, key := range index.order {
		if !countrySet[key.Country] || !cropSet[key.Crop] || !yearSet[key.Year] {
			continue
		}
		rec, ok := index.Mean(key)
		if !ok {
			continue
		}
		out = append(out, rec)
	}

	SortAggregated(out)
	return out
}

// AggregateAll aggregates over the distinct keys observed in records.
func AggregateAll(records []RawRecord) []AggregatedRecord {
	keys := Distinct(records)
	return Aggregate(records, keys.Countries, keys.Crops, keys.Years)
}

// SortAggregated orders records by country, year and crop, ascending.
func SortAggregated(records []AggregatedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Crop < b.Crop
	})
}

// Distinct returns the distinct countries, crops and years of records in
// first-seen order.
func Distinct(records []RawRecord) KeySets {
	var ks KeySets
	countries := make(map[string]bool)
	crops := make(map[string]bool)
	years := make(map[int]bool)
	for _, r := range records {
		if !countries[r.Country] {
			countries[r.Country] = true
			ks.Countries = append(ks.Countries, r.Country)
		}
		if !crops[r.Crop] {
			crops[r.Crop] = true
			ks.Crops = append(ks.Crops, r.Crop)
		}
		if !years[r.Year] {
			years[r.Year] = true
			ks.Years = append(ks.Years, r.Year)
		}
	}
	return ks
}

// IsBlankCountry reports whether a country value is empty or whitespace.
func IsBlankCountry(country string) bool {
	return strings.TrimSpace(country) == ""
}

// ============================================================================
// GROUPED INDEX
// ============================================================================

type accumulator struct {
	count       int
	yield       float64
	rainfall    float64
	pesticides  float64
	temperature float64
}

// Index maps each key to running sums of its rows. Built in one pass.
type Index struct {
	buckets map[Key]*accumulator
	order   []Key
}

// BuildIndex groups records by key, skipping blank countries.
func BuildIndex(records []RawRecord) *Index {
	idx := &Index{buckets: make(map[Key]*accumulator)}
	for _, r := range records {
		if IsBlankCountry(r.Country) {
			continue
		}
		k := r.Key()
		acc, ok := idx.buckets[k]
		if !ok {
			acc = &accumulator{}
			idx.buckets[k] = acc
			idx.order = append(idx.order, k)
		}
		acc.count++
		acc.yield += r.Yield
		acc.rainfall += r.Rainfall
		acc.pesticides += r.Pesticides
		acc.temperature += r.Temperature
	}
	return idx
}

// Len is the number of non-empty buckets.
func (idx *Index) Len() int { return len(idx.order) }

// Count returns how many rows share key.
func (idx *Index) Count(key Key) int {
	if acc, ok := idx.buckets[key]; ok {
		return acc.count
	}
	return 0
}

// Mean returns the averaged record for key. ok is false when no row matched
// or the mean yield is not a number.
func (idx *Index) Mean(key Key) (AggregatedRecord, bool) {
	acc, found := idx.buckets[key]
	if !found || acc.count == 0 {
		return AggregatedRecord{}, false
	}
	n := float64(acc.count)
	rec := AggregatedRecord{
		Country:         key.Country,
		Crop:            key.Crop,
		Year:            key.Year,
		MeanYield:       acc.yield / n,
		MeanRainfall:    acc.rainfall / n,
		MeanPesticides:  acc.pesticides / n,
		MeanTemperature: acc.temperature / n,
		Count:           acc.count,
	}
	if math.IsNaN(rec.MeanYield) {
		return AggregatedRecord{}, false
	}
	return rec, true
}
