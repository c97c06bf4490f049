package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cropyield/dataset"
	"github.com/spektr-org/cropyield/engine"
)

const testCSV = ",Area,Item,Year,hg/ha_yield,average_rain_fall_mm_per_year,pesticides_tonnes,avg_temp\n" +
	"0,Albania,Maize,1990,36613,1485,121,16.37\n" +
	"1,Albania,Maize,1990,36615,1485,121,16.39\n" +
	"2,Albania,Potatoes,1990,66667,1485,121,16.37\n" +
	"3,Albania,Maize,1991,29068,1485,0,15.36\n" +
	"4,Algeria,Maize,1990,6900,89,3.4,17.2\n" +
	"5,,Maize,1990,1,1,1,1\n"

type fixture struct {
	fs     afero.Fs
	store  *dataset.Store
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/yield_df.csv", []byte(testCSV), 0o644))
	store := dataset.NewStore("/yield_df.csv", dataset.WithFs(fs))
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	return &fixture{fs: fs, store: store, server: New(store)}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[healthResponse](t, rec)
	require.Equal(t, "ok", body.Status)
	require.Equal(t, 6, body.Rows)
	require.Equal(t, 4, body.Aggregated)
}

func TestHealthWithoutData(t *testing.T) {
	store := dataset.NewStore("/missing.csv", dataset.WithFs(afero.NewMemMapFs()))
	rec := httptest.NewRecorder()
	New(store).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"no dataset loaded"}`, rec.Body.String())
}

func TestOptions(t *testing.T) {
	body := decode[optionsResponse](t, newFixture(t).do(t, http.MethodGet, "/api/options"))

	require.Equal(t, []string{"Albania", "Algeria"}, body.Countries)
	require.Equal(t, []string{"Maize", "Potatoes"}, body.Crops)
	require.Equal(t, []int{1990, 1991}, body.Years)
	require.Len(t, body.Metrics, 3)
	require.Equal(t, "Yield (Tonnes)", body.Metrics[0].Label)
}

func TestRecordsSelection(t *testing.T) {
	f := newFixture(t)

	all := decode[[]engine.AggregatedRecord](t, f.do(t, http.MethodGet, "/api/records"))
	require.Len(t, all, 4)

	rows := decode[[]engine.AggregatedRecord](t, f.do(t, http.MethodGet, "/api/records?country=Albania&crop=Maize&year=1990"))
	require.Len(t, rows, 1)
	require.Equal(t, 36614.0, rows[0].MeanYield)
	require.Equal(t, 2, rows[0].Count)

	none := f.do(t, http.MethodGet, "/api/records?country=Narnia")
	require.Equal(t, http.StatusOK, none.Code)
	require.JSONEq(t, `[]`, none.Body.String())

	bad := f.do(t, http.MethodGet, "/api/records?year=soon")
	require.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestRawPaging(t *testing.T) {
	f := newFixture(t)

	body := decode[rawResponse](t, f.do(t, http.MethodGet, "/api/raw?limit=2&offset=1"))
	require.Equal(t, 6, body.Total)
	require.Len(t, body.Table.Rows, 2)
	require.Equal(t, "36615", body.Table.Rows[0][3])

	past := decode[rawResponse](t, f.do(t, http.MethodGet, "/api/raw?offset=50"))
	require.Empty(t, past.Table.Rows)

	rec := f.do(t, http.MethodGet, "/api/raw?limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "limit")
}

func TestTrendChart(t *testing.T) {
	chart := decode[engine.ChartConfig](t, newFixture(t).do(t, http.MethodGet, "/api/charts/trend"))

	require.Equal(t, "line", chart.ChartType)
	require.Len(t, chart.Series, 2)
}

func TestChoropleth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/charts/choropleth?crop=Maize&metric=rainfall")
	require.Equal(t, http.StatusOK, rec.Code)
	chart := decode[engine.ChoroplethConfig](t, rec)
	require.Equal(t, "blues", chart.ColorScale)
	require.Len(t, chart.Frames, 2)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/charts/choropleth").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/charts/choropleth?crop=Maize&metric=pesticides").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/charts/choropleth?crop=Maize&metric=humidity").Code)
}

func TestCompositionChart(t *testing.T) {
	f := newFixture(t)

	chart := decode[engine.ChartConfig](t, f.do(t, http.MethodGet, "/api/charts/composition?country=Albania&normalise=true"))
	require.Equal(t, "stacked_bar", chart.ChartType)
	require.Equal(t, "Normalised Yield (%)", chart.YAxis)

	rec := f.do(t, http.MethodGet, "/api/charts/composition")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "country failed 'required'")
}

func TestRatioChartNulls(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/charts/ratio?country=Albania&kind=pesticides")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `{"label":"1991","value":null}`)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/charts/ratio?country=Albania&kind=sun").Code)
}

func TestGrowth(t *testing.T) {
	f := newFixture(t)

	text := decode[engine.TextData](t, f.do(t, http.MethodGet, "/api/summary/growth?country=Albania"))
	require.Equal(t, "decreased", text.Growth.Direction)

	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/summary/growth?country=Narnia").Code)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	dash := decode[engine.Dashboard](t, f.do(t, http.MethodGet, "/api/dashboard?country=Albania&crop=Maize&metric=rainfall&normalise=true"))
	require.Equal(t, "rainfall", dash.Selection.Metric)
	require.NotNil(t, dash.Trend)
	require.Equal(t, "blues", dash.Choropleth.ColorScale)
	require.Len(t, dash.Composition.Series, 2)
	require.NotNil(t, dash.Growth)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/dashboard?crop=Maize&metric=pesticides").Code)
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/yield_df.csv", []byte(testCSV+"6,Angola,Maize,1990,5000,1010,70,24\n"), 0o644))

	rec := f.do(t, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 7, decode[healthResponse](t, rec).Rows)

	body := decode[optionsResponse](t, f.do(t, http.MethodGet, "/api/options"))
	require.Contains(t, body.Countries, "Angola")
}

func TestReloadFailureKeepsServing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/yield_df.csv", []byte("Area\n"), 0o644))

	rec := f.do(t, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "missing required columns")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz").Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := newFixture(t).do(t, http.MethodGet, "/api/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())
}

func TestNonFiniteCellDoesNotBreakResponses(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := testCSV + "6,Albania,Maize,1992,NaN,1485,121,16.37\n" + "7,Albania,Maize,1992,30000,Inf,121,16.37\n"
	require.NoError(t, afero.WriteFile(fs, "/yield_df.csv", []byte(data), 0o644))
	store := dataset.NewStore("/yield_df.csv", dataset.WithFs(fs))
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Skipped)

	f := &fixture{fs: fs, store: store, server: New(store)}
	for _, target := range []string{
		"/api/records",
		"/api/charts/choropleth?crop=Maize&metric=rainfall",
		"/api/dashboard?country=Albania&crop=Maize",
	} {
		rec := f.do(t, http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code, target+": "+rec.Body.String())
	}
}

func TestCompositionKeepsCaseDistinctCountries(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := ",Area,Item,Year,hg/ha_yield,average_rain_fall_mm_per_year,pesticides_tonnes,avg_temp\n" +
		"0,Niger,Maize,2000,100,1,1,1\n" +
		"1,niger,Maize,2000,300,1,1,1\n" +
		"2,Niger,Rice,2000,100,1,1,1\n"
	require.NoError(t, afero.WriteFile(fs, "/yield_df.csv", []byte(data), 0o644))
	store := dataset.NewStore("/yield_df.csv", dataset.WithFs(fs))
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	f := &fixture{fs: fs, store: store, server: New(store)}

	chart := decode[engine.ChartConfig](t, f.do(t, http.MethodGet, "/api/charts/composition?country=Niger&normalise=true"))
	require.Len(t, chart.Series, 2)
	require.Equal(t, engine.Defined(50), chart.Series[0].Data[0].Value)
	require.Equal(t, engine.Defined(50), chart.Series[1].Data[0].Value)
}

func TestReloadKeepsCachedAggregation(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/yield_df.csv", []byte(testCSV), 0o644))
	agg := engine.NewCachedAggregator()
	store := dataset.NewStore("/yield_df.csv", dataset.WithFs(fs), dataset.WithAggregator(agg))
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	f := &fixture{fs: fs, store: store, server: New(store, WithAggregator(agg))}

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/reload").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/records").Code)

	hits, misses := agg.Stats()
	require.Equal(t, int64(1), misses)
	require.Equal(t, int64(2), hits)
}
