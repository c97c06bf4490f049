package main

import (
	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/export"
)

func newAggregateCmd(a *app) *cobra.Command {
	var (
		format    string
		out       string
		countries []string
		crops     []string
		years     []int
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print the mean of every metric per country, crop and year",
		Example: `  cropyield aggregate --data yield_df.csv --format pretty
  cropyield aggregate --country Albania --crop Maize --format csv --out albania.csv
  cropyield aggregate --format xlsx --out yield.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f.Binary() && out == "" {
				return errors.Errorf("--format %s needs --out", f)
			}

			snap, agg, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			if len(countries) == 0 {
				countries = snap.Keys.Countries
			}
			if len(crops) == 0 {
				crops = snap.Keys.Crops
			}
			if len(years) == 0 {
				years = snap.Keys.Years
			}
			records := agg.Aggregate(snap.Raw, countries, crops, years)

			w, closeOut, err := a.output(cmd, out)
			if err != nil {
				return err
			}
			if err := export.WriteRecords(w, f, records); err != nil {
				closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return errors.Wrap(err, 0)
			}
			if out != "" {
				a.logger.Info("aggregated table written", zap.String("path", out), zap.Int("rows", len(records)))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&format, "format", "json", "Output format: json, pretty, csv, xlsx")
	fl.StringVar(&out, "out", "", "Write output to file instead of stdout")
	fl.StringSliceVar(&countries, "country", nil, "Countries to include (repeatable, default all)")
	fl.StringSliceVar(&crops, "crop", nil, "Crops to include (repeatable, default all)")
	fl.IntSliceVar(&years, "year", nil, "Years to include (repeatable, default all)")
	return cmd
}
