package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/engine"
)

const defaultRawLimit = 100

type metricOption struct {
	Key   engine.Metric `json:"key"`
	Label string        `json:"label"`
}

type optionsResponse struct {
	Countries []string       `json:"countries"`
	Crops     []string       `json:"crops"`
	Years     []int          `json:"years"`
	Metrics   []metricOption `json:"metrics"`
}

type healthResponse struct {
	Status     string    `json:"status"`
	Rows       int       `json:"rows"`
	Aggregated int       `json:"aggregated"`
	Skipped    int       `json:"skipped"`
	LoadedAt   time.Time `json:"loadedAt"`
}

type recordsQuery struct {
	Countries []string `query:"country"`
	Crops     []string `query:"crop"`
	Years     []int    `query:"year"`
}

type rawQuery struct {
	Limit  int `query:"limit" validate:"gte=0,lte=10000"`
	Offset int `query:"offset" validate:"gte=0"`
}

type rawResponse struct {
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Table  *engine.TableData `json:"table"`
}

type choroplethQuery struct {
	Crop   string `query:"crop" validate:"required"`
	Metric string `query:"metric"`
}

type compositionQuery struct {
	Country   string `query:"country" validate:"required"`
	Normalise bool   `query:"normalise"`
}

type ratioQuery struct {
	Country string `query:"country" validate:"required"`
	Kind    string `query:"kind" validate:"required"`
}

type growthQuery struct {
	Country string `query:"country" validate:"required"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func (s *Server) health(c echo.Context) error {
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:     "ok",
		Rows:       len(snap.Raw),
		Aggregated: len(snap.Aggregated),
		Skipped:    snap.Skipped,
		LoadedAt:   snap.LoadedAt,
	})
}

func (s *Server) options(c echo.Context) error {
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	metrics := make([]metricOption, 0, len(engine.DisplayMetrics()))
	for _, m := range engine.DisplayMetrics() {
		metrics = append(metrics, metricOption{Key: m, Label: m.Label()})
	}
	return c.JSON(http.StatusOK, optionsResponse{
		Countries: snap.Keys.Countries,
		Crops:     snap.Keys.Crops,
		Years:     snap.Keys.Years,
		Metrics:   metrics,
	})
}

// records aggregates the raw rows for the requested selection. An empty
// dimension selects every known value.
func (s *Server) records(c echo.Context) error {
	var q recordsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}

	countries, crops, years := q.Countries, q.Crops, q.Years
	if len(countries) == 0 {
		countries = snap.Keys.Countries
	}
	if len(crops) == 0 {
		crops = snap.Keys.Crops
	}
	if len(years) == 0 {
		years = snap.Keys.Years
	}
	return c.JSON(http.StatusOK, s.aggregator.Aggregate(snap.Raw, countries, crops, years))
}

func (s *Server) raw(c echo.Context) error {
	var q rawQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultRawLimit
	}
	start := min(q.Offset, len(snap.Raw))
	end := min(start+limit, len(snap.Raw))
	return c.JSON(http.StatusOK, rawResponse{
		Total:  len(snap.Raw),
		Offset: start,
		Limit:  limit,
		Table:  engine.BuildRawTable("Raw data", snap.Raw[start:end]),
	})
}

func (s *Server) trendChart(c echo.Context) error {
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	chart := engine.BuildYieldTrendChart(snap.View())
	if chart == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no data for chart")
	}
	return c.JSON(http.StatusOK, chart)
}

func (s *Server) choropleth(c echo.Context) error {
	var q choroplethQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	metric := engine.MetricYield
	if q.Metric != "" {
		m, err := engine.ParseMetric(q.Metric)
		if err != nil {
			return err
		}
		metric = m
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	chart, err := engine.BuildChoropleth(snap.View(), q.Crop, metric)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chart)
}

func (s *Server) compositionChart(c echo.Context) error {
	var q compositionQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	chart, err := engine.BuildCompositionChart(snap.View(), q.Country, q.Normalise)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chart)
}

func (s *Server) ratioChart(c echo.Context) error {
	var q ratioQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	kind, err := engine.ParseRatioKind(q.Kind)
	if err != nil {
		return err
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	chart, err := engine.BuildRatioChart(snap.View(), q.Country, kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chart)
}

func (s *Server) growth(c echo.Context) error {
	var q growthQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	text, err := engine.BuildGrowthText(snap.View(), q.Country)
	if err != nil {
		return err
	}
	if text.Growth == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no yield data for "+q.Country)
	}
	return c.JSON(http.StatusOK, text)
}

// dashboard renders every panel for the dropdown state in one response.
func (s *Server) dashboard(c echo.Context) error {
	var sel engine.Selection
	if err := bindAndValidate(c, &sel); err != nil {
		return err
	}
	snap, err := s.source.Current()
	if err != nil {
		return err
	}
	dash, err := engine.BuildDashboard(snap.View(), sel, engine.WithLogger(s.logger))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}

func (s *Server) reload(c echo.Context) error {
	snap, err := s.source.Reload(c.Request().Context())
	if err != nil {
		return err
	}
	s.logger.Info("dataset reloaded over http", zap.Int("rows", len(snap.Raw)))
	return c.JSON(http.StatusOK, healthResponse{
		Status:     "reloaded",
		Rows:       len(snap.Raw),
		Aggregated: len(snap.Aggregated),
		Skipped:    snap.Skipped,
		LoadedAt:   snap.LoadedAt,
	})
}
