package main

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Data.Watch = watch
			}

			agg := a.aggregator()
			store := a.store(agg)
			if _, err := store.Load(ctx); err != nil {
				return err
			}

			srv := server.New(store,
				server.WithLogger(a.logger),
				server.WithAggregator(agg),
				server.WithAllowOrigins(a.cfg.Server.AllowOrigins...),
				server.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout),
			)

			var wg conc.WaitGroup
			if a.cfg.Data.Watch {
				wg.Go(func() {
					if err := store.Watch(ctx, 500*time.Millisecond); err != nil {
						a.logger.Error("dataset watcher stopped", zap.Error(err))
					}
				})
			}
			err := srv.Start(ctx, a.cfg.Server.Addr)
			cancel()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8050", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the CSV when it changes (overrides data.watch)")
	return cmd
}
