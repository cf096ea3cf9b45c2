package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pathwise/trendintel/internal/niche"
	"github.com/pathwise/trendintel/internal/scheduler"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		pathID    string
		nicheName string
		subSector string
		ifStale   bool
		insight   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once for a path and print the result",
		Example: `  trendintel run --path content_monetization --niche investasi
  trendintel run --path content_monetization --niche investasi --if-stale --insight`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, nil, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var res scheduler.RunResult
			ran := true
			if ifStale {
				res, ran = a.pipeline.RefreshIfStale(ctx, pathID, nicheName, subSector)
			} else {
				res = a.pipeline.RunFullPipeline(ctx, pathID, nicheName, subSector)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if !ran {
				fmt.Fprintln(cmd.OutOrStdout(), "Scores are fresh, nothing to do.")
			} else if err := enc.Encode(res); err != nil {
				return err
			}

			if insight {
				in, err := a.pipeline.ComputeTrendInsight(ctx, pathID, nicheName, subSector)
				if err != nil {
					return err
				}
				if err := enc.Encode(in); err != nil {
					return err
				}
			}

			if ran && res.Outcome == scheduler.OutcomeFailure {
				return errors.New(res.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pathID, "path", niche.PathContentMonetization, "economic path id")
	cmd.Flags().StringVar(&nicheName, "niche", "", "niche or interest, e.g. investasi")
	cmd.Flags().StringVar(&subSector, "sub-sector", "", "optional sub-sector appended to the niche")
	cmd.Flags().BoolVar(&ifStale, "if-stale", false, "only run when scores are older than pipeline.staleness_window")
	cmd.Flags().BoolVar(&insight, "insight", false, "print the niche insight after the run")
	return cmd
}
