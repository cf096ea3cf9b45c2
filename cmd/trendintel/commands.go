package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/niche"
	"github.com/pathwise/trendintel/internal/store"
	"github.com/pathwise/trendintel/internal/version"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check sources, data freshness and keyword coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			h := a.pipeline.CheckPipelineHealth(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(h); err != nil {
				return err
			}
			if !h.Healthy {
				return errors.New("pipeline unhealthy")
			}
			return nil
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the default niche taxonomy to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.Store, cfg.Database)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			nodes := niche.DefaultTaxonomy()
			if err := niche.Seed(cmd.Context(), st, nodes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d taxonomy nodes.\n", len(nodes))
			return nil
		},
	}
}

func newPruneCmd(opts *rootOptions) *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove stale signals and old data points",
		Long: `Delete market signals and trend data points older than the retention period.

Uses pipeline.retention_days from config (default: 30) unless overridden with --older-than.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			days := cfg.Pipeline.RetentionDays
			if olderThan > 0 {
				days = olderThan
			}

			res, err := a.signals.CleanupStaleSignals(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("cleanup signals: %w", err)
			}
			cutoff := model.Day(time.Now()).AddDate(0, 0, -days)
			purged, err := a.store.DeleteDataPointsBefore(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("purge data points: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d signal(s) and %d data point(s) older than %dd.\n", res.Deleted, purged, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 0, "retention in days")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trendintel %s\n", version.String())
		},
	}
}
