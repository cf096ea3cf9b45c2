package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathwise/trendintel/internal/progress"
	"github.com/pathwise/trendintel/internal/scheduler"
	"github.com/pathwise/trendintel/internal/server"
	"github.com/pathwise/trendintel/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noRefresh bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, progress stream and background refresher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			logger.Info("starting trendintel",
				"version", version.Version,
				"commit", version.Commit,
				"instance_id", cfg.Instance.ID,
				"store", cfg.Store.Driver,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := progress.NewHub(logger)
			if err := hub.Start(ctx); err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, progress.Multi{progress.NewLogObserver(logger), hub}, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(server.Config{Port: cfg.Server.Port}, a.pipeline, a.store, hub, logger)
			if err := srv.Start(ctx); err != nil {
				return err
			}

			var refresher *scheduler.Refresher
			if !noRefresh {
				refresher = scheduler.NewRefresher(scheduler.RefresherConfigFrom(cfg.Pipeline), a.pipeline, logger)
				if err := refresher.Start(ctx); err != nil {
					return err
				}
			}

			logger.Info("trendintel running", "health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port))
			<-ctx.Done()
			logger.Info("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if refresher != nil {
				if err := refresher.Stop(shutdownCtx); err != nil {
					logger.Warn("refresher stop", "err", err)
				}
			}
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Warn("server stop", "err", err)
			}
			if err := hub.Stop(shutdownCtx); err != nil {
				logger.Warn("hub stop", "err", err)
			}

			logger.Info("trendintel stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "disable the background staleness refresher")
	return cmd
}
