package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/engine"
	"github.com/pathwise/trendintel/internal/fetcher"
	"github.com/pathwise/trendintel/internal/niche"
	"github.com/pathwise/trendintel/internal/progress"
	"github.com/pathwise/trendintel/internal/scheduler"
	sig "github.com/pathwise/trendintel/internal/signal"
	"github.com/pathwise/trendintel/internal/source"
	"github.com/pathwise/trendintel/internal/store"
)

// app is the wired pipeline shared by every command.
type app struct {
	cfg      *config.Config
	store    store.Store
	signals  *sig.Service
	pipeline *scheduler.Pipeline
}

func newApp(ctx context.Context, cfg *config.Config, observer progress.Observer, logger *slog.Logger) (*app, error) {
	st, err := store.Open(ctx, cfg.Store, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := ensureTaxonomy(ctx, st, logger); err != nil {
		st.Close()
		return nil, err
	}

	adapters := source.FromConfig(cfg, logger)
	f := fetcher.New(fetcher.ConfigFrom(cfg.Fetch, cfg.Pipeline), adapters, st, logger)
	signals := sig.New(sig.Config{TopK: cfg.Pipeline.TopK, HotThreshold: cfg.Pipeline.HotThreshold}, st, logger)

	if observer == nil {
		observer = progress.NewLogObserver(logger)
	}
	pipeline := scheduler.New(scheduler.ConfigFrom(cfg.Pipeline), scheduler.Deps{
		Resolver: niche.NewResolver(st, logger),
		Fetcher:  f,
		Scorer:   engine.New(st, st, logger),
		Signals:  signals,
		Store:    st,
		Observer: observer,
	}, logger)

	for _, s := range f.GetDataSourceStatus() {
		logger.Debug("data source", "name", s.Name, "platform", s.Platform, "configured", s.Configured)
	}
	if !f.HasAnyDataSource() {
		logger.Warn("no data sources configured; runs will score stored data only")
	}

	return &app{
		cfg:      cfg,
		store:    st,
		signals:  signals,
		pipeline: pipeline,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// ensureTaxonomy seeds the default taxonomy into an empty store.
func ensureTaxonomy(ctx context.Context, st store.TaxonomyStore, logger *slog.Logger) error {
	nodes, err := st.ListNiches(ctx, niche.PathContentMonetization)
	if err != nil {
		return fmt.Errorf("check taxonomy: %w", err)
	}
	if len(nodes) > 0 {
		return nil
	}
	taxonomy := niche.DefaultTaxonomy()
	if err := niche.Seed(ctx, st, taxonomy); err != nil {
		return fmt.Errorf("seed taxonomy: %w", err)
	}
	logger.Info("seeded default taxonomy", "nodes", len(taxonomy))
	return nil
}
