package main

import (
	"context"
	"io"
	"os"

	"github.com/go-errors/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/config"
	"github.com/spektr-org/cropyield/dataset"
	"github.com/spektr-org/cropyield/engine"
	"github.com/spektr-org/cropyield/logging"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	fs         afero.Fs
	configPath string
	dataPath   string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:           "cropyield",
		Short:         "Crop yield aggregation and dashboard API",
		Long:          "cropyield averages yield, rainfall, pesticide and temperature figures per country, crop and year, and serves the dashboard charts built from them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to YAML config (default $"+config.EnvConfigPath+")")
	pf.StringVar(&a.dataPath, "data", "", "Path to the yield CSV (overrides data.path)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(a),
		newAggregateCmd(a),
		newChartsCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.fs, a.configPath)
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.Data.Path = a.dataPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("cmd", cmd.Name()))
	return nil
}

func (a *app) aggregator() *engine.CachedAggregator {
	return engine.NewCachedAggregator(
		engine.WithCache(a.cfg.Cache.Enabled),
		engine.WithExpiration(a.cfg.Cache.Expiration, a.cfg.Cache.CleanupInterval),
		engine.WithLogger(a.logger),
	)
}

func (a *app) store(agg *engine.CachedAggregator) *dataset.Store {
	return dataset.NewStore(a.cfg.Data.Path,
		dataset.WithFs(a.fs),
		dataset.WithAggregator(agg),
		dataset.WithLogger(a.logger),
	)
}

func (a *app) load(ctx context.Context) (*dataset.Snapshot, *engine.CachedAggregator, error) {
	agg := a.aggregator()
	snap, err := a.store(agg).Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return snap, agg, nil
}

// output returns stdout or the file at path. The closer is a no-op for stdout.
func (a *app) output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := a.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, errors.WrapPrefix(err, "failed to create output file", 0)
	}
	return f, f.Close, nil
}
