package engine

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func rec(country, crop string, year int, y, rain, pest, temp float64) RawRecord {
	return RawRecord{Country: country, Crop: crop, Year: year, Yield: y, Rainfall: rain, Pesticides: pest, Temperature: temp}
}

var sampleRecords = []RawRecord{
	rec("Albania", "Maize", 1990, 36613, 1485, 121, 16.37),
	rec("Albania", "Maize", 1990, 36615, 1485, 121, 16.39),
	rec("Albania", "Potatoes", 1990, 66667, 1485, 121, 16.37),
	rec("Albania", "Maize", 1991, 29068, 1485, 121, 15.36),
	rec("Algeria", "Wheat", 1990, 6900, 89, 3.4, 17.2),
	rec("  ", "Wheat", 1990, 99999, 1, 1, 1),
	rec("", "Maize", 1991, 99999, 1, 1, 1),
	rec("Algeria", "Wheat", 1989, 7000, 89, 3.4, 17.0),
}

func TestAggregateAveragesDuplicateKeys(t *testing.T) {
	records := []RawRecord{
		rec("A", "Wheat", 2000, 10, 100, 1, 20),
		rec("A", "Wheat", 2000, 20, 120, 1, 22),
	}

	out := Aggregate(records, []string{"A"}, []string{"Wheat"}, []int{2000})

	require.Equal(t, []AggregatedRecord{{
		Country:         "A",
		Crop:            "Wheat",
		Year:            2000,
		MeanYield:       15,
		MeanRainfall:    110,
		MeanPesticides:  1,
		MeanTemperature: 21,
		Count:           2,
	}}, out)
}

func TestAggregateOmitsTriplesWithoutRows(t *testing.T) {
	records := []RawRecord{rec("A", "Wheat", 2000, 10, 100, 1, 20)}

	out := Aggregate(records, []string{"A", "B"}, []string{"Wheat", "Rice"}, []int{2000, 2001})

	require.Len(t, out, 1)
	for _, r := range out {
		require.NotEqual(t, "B", r.Country)
		require.NotEqual(t, "Rice", r.Crop)
		require.NotEqual(t, 2001, r.Year)
	}
}

func TestAggregateDropsBlankCountries(t *testing.T) {
	keys := Distinct(sampleRecords)
	out := Aggregate(sampleRecords, append(keys.Countries, "", "  "), keys.Crops, keys.Years)

	for _, r := range out {
		require.False(t, IsBlankCountry(r.Country), "blank country leaked into %+v", r)
		require.Less(t, r.MeanYield, 99999.0)
	}
}

func TestAggregateMeanMatchesBruteForce(t *testing.T) {
	keys := Distinct(sampleRecords)
	out := Aggregate(sampleRecords, keys.Countries, keys.Crops, keys.Years)

	for _, got := range out {
		var sum float64
		var n int
		for _, r := range sampleRecords {
			if r.Country == got.Country && r.Crop == got.Crop && r.Year == got.Year {
				sum += r.Yield
				n++
			}
		}
		require.NotZero(t, n)
		require.Equal(t, n, got.Count)
		require.InDelta(t, sum/float64(n), got.MeanYield, 1e-9)
	}
	require.Len(t, out, 5)
}

func TestAggregateSortedByCountryThenYear(t *testing.T) {
	out := AggregateAll(sampleRecords)

	require.True(t, sort.SliceIsSorted(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Year < out[j].Year
	}))
	require.Equal(t, "Albania", out[0].Country)
	require.Equal(t, "Maize", out[0].Crop)
	require.Equal(t, "Potatoes", out[1].Crop)
	require.Equal(t, 1989, out[3].Year)
}

func TestAggregateIsDeterministic(t *testing.T) {
	first := AggregateAll(sampleRecords)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, AggregateAll(sampleRecords))
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	in := make([]RawRecord, len(sampleRecords))
	copy(in, sampleRecords)

	AggregateAll(in)

	require.Equal(t, sampleRecords, in)
}

func TestAggregateEmptyInputs(t *testing.T) {
	require.Empty(t, Aggregate(nil, []string{"A"}, []string{"Wheat"}, []int{2000}))
	require.Empty(t, Aggregate(sampleRecords, nil, []string{"Wheat"}, []int{1990}))
	require.NotNil(t, Aggregate(nil, nil, nil, nil))
}

func TestAggregateDropsNaNYield(t *testing.T) {
	records := []RawRecord{rec("A", "Wheat", 2000, math.NaN(), 1, 1, 1)}
	require.Empty(t, AggregateAll(records))
}

func TestDistinctKeepsFirstSeenOrder(t *testing.T) {
	keys := Distinct(sampleRecords)

	require.Equal(t, []string{"Albania", "Algeria", "  ", ""}, keys.Countries)
	require.Equal(t, []string{"Maize", "Potatoes", "Wheat"}, keys.Crops)
	require.Equal(t, []int{1990, 1991, 1989}, keys.Years)
}

func TestIndexCount(t *testing.T) {
	idx := BuildIndex(sampleRecords)

	require.Equal(t, 2, idx.Count(Key{Country: "Albania", Crop: "Maize", Year: 1990}))
	require.Equal(t, 0, idx.Count(Key{Country: "", Crop: "Maize", Year: 1991}))
	require.Equal(t, 5, idx.Len())
}
