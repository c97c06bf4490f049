package main

import (
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/spektr-org/cropyield/engine"
	"github.com/spektr-org/cropyield/export"
)

const (
	kindTrend       = "trend"
	kindChoropleth  = "choropleth"
	kindComposition = "composition"
	kindRatio       = "ratio"
	kindDashboard   = "dashboard"
)

func newChartsCmd(a *app) *cobra.Command {
	var (
		kind      string
		format    string
		out       string
		country   string
		crop      string
		metric    string
		ratio     string
		normalise bool
	)

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Print a dashboard chart config",
		Example: `  cropyield charts --kind trend --format pretty
  cropyield charts --kind choropleth --crop Maize --metric rainfall
  cropyield charts --kind composition --country Albania --normalise --format csv
  cropyield charts --kind ratio --country Albania --ratio pesticides
  cropyield charts --kind dashboard --country Albania --crop Maize --format pretty`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f.Binary() && out == "" {
				return errors.Errorf("--format %s needs --out", f)
			}

			snap, _, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			view := snap.View()

			w, closeOut, err := a.output(cmd, out)
			if err != nil {
				return err
			}
			defer closeOut()

			var chart *engine.ChartConfig
			switch kind {
			case kindTrend:
				chart = engine.BuildYieldTrendChart(view)
				if chart == nil {
					return errors.New("no data for trend chart")
				}
			case kindChoropleth:
				m, err := engine.ParseMetric(metric)
				if err != nil {
					return err
				}
				choropleth, err := engine.BuildChoropleth(view, crop, m)
				if err != nil {
					return err
				}
				if f != export.FormatJSON && f != export.FormatPretty {
					return errors.Errorf("choropleth supports json and pretty only, got %s", f)
				}
				return export.WriteJSON(w, choropleth, f == export.FormatPretty)
			case kindComposition:
				chart, err = engine.BuildCompositionChart(view, country, normalise)
			case kindRatio:
				k, perr := engine.ParseRatioKind(ratio)
				if perr != nil {
					return perr
				}
				chart, err = engine.BuildRatioChart(view, country, k)
			case kindDashboard:
				dash, err := engine.BuildDashboard(view, engine.Selection{
					Country: country, Crop: crop, Metric: metric, Normalise: normalise,
				}, engine.WithLogger(a.logger))
				if err != nil {
					return err
				}
				if f != export.FormatJSON && f != export.FormatPretty {
					return errors.Errorf("dashboard supports json and pretty only, got %s", f)
				}
				return export.WriteJSON(w, dash, f == export.FormatPretty)
			default:
				return errors.Errorf("unknown chart kind %q (want trend, choropleth, composition, ratio or dashboard)", kind)
			}
			if err != nil {
				return err
			}
			return export.WriteChart(w, f, chart)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&kind, "kind", kindTrend, "Chart: trend, choropleth, composition, ratio, dashboard")
	fl.StringVar(&format, "format", "json", "Output format: json, pretty, csv, xlsx")
	fl.StringVar(&out, "out", "", "Write output to file instead of stdout")
	fl.StringVar(&country, "country", "", "Country for composition and ratio charts")
	fl.StringVar(&crop, "crop", "", "Crop for the choropleth")
	fl.StringVar(&metric, "metric", string(engine.MetricYield), "Choropleth metric: yield, rainfall, temperature")
	fl.StringVar(&ratio, "ratio", string(engine.RatioPesticides), "Ratio denominator: pesticides, rainfall")
	fl.BoolVar(&normalise, "normalise", false, "Show each crop as a percentage of the year's total")
	return cmd
}
