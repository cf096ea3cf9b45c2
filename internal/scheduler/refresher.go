package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pathwise/trendintel/internal/config"
)

// RefresherConfig holds refresher configuration.
type RefresherConfig struct {
	Interval    time.Duration // Check interval (default: 1h)
	Paths       []string      // Paths to refresh; empty means every path with signals
	Concurrency int           // Paths refreshed at once (default: 2)
}

// RefresherConfigFrom maps the pipeline section of the file config.
func RefresherConfigFrom(cfg config.PipelineConfig) RefresherConfig {
	return RefresherConfig{
		Interval: cfg.RefreshInterval,
		Paths:    cfg.RefreshPaths,
	}
}

// Refresher periodically re-runs the pipeline for niches whose scores have
// gone stale.
type Refresher struct {
	cfg      RefresherConfig
	pipeline *Pipeline
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a Refresher for the pipeline.
func NewRefresher(cfg RefresherConfig, pipeline *Pipeline, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultRefreshInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Refresher{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Start begins the refresh loop.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("refresher started",
		"interval", r.cfg.Interval,
		"paths", len(r.cfg.Paths),
	)

	return nil
}

// Stop gracefully shuts down the refresher.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refreshAll(r.ctx)
		}
	}
}

// refreshAll checks every tracked niche once and runs the stale ones.
func (r *Refresher) refreshAll(ctx context.Context) {
	start := time.Now()

	paths, err := r.paths(ctx)
	if err != nil {
		r.logger.Warn("list refresh paths failed", "err", err)
		return
	}
	if len(paths) == 0 {
		r.logger.Debug("no paths to refresh")
		return
	}

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	var ran, failed atomic.Int64

	for _, pathID := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			n, f := r.refreshPath(ctx, pathID)
			ran.Add(int64(n))
			failed.Add(int64(f))
		}()
	}

	wg.Wait()

	r.logger.Info("refresh cycle complete",
		"paths", len(paths),
		"runs", ran.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
}

// refreshPath runs every stale niche of the path in turn. Runs for one path
// are serialized by the in-flight registry anyway.
func (r *Refresher) refreshPath(ctx context.Context, pathID string) (ran, failed int) {
	nicheIDs, err := r.niches(ctx, pathID)
	if err != nil {
		r.logger.Warn("list niches to refresh failed", "path_id", pathID, "err", err)
		return 0, 1
	}

	p := r.pipeline
	for _, nicheID := range nicheIDs {
		if ctx.Err() != nil {
			return ran, failed
		}
		res, ok := p.deps.Resolver.ResolveNicheID(ctx, pathID, nicheID)
		if !ok {
			r.logger.Debug("niche no longer in taxonomy", "path_id", pathID, "niche_id", nicheID)
			continue
		}
		result, didRun := p.refreshResolved(ctx, pathID, res)
		if !didRun {
			continue
		}
		ran++
		if result.Outcome == OutcomeFailure {
			failed++
		}
	}
	return ran, failed
}

func (r *Refresher) paths(ctx context.Context) ([]string, error) {
	if len(r.cfg.Paths) > 0 {
		return r.cfg.Paths, nil
	}
	return r.pipeline.deps.Store.ListSignalPaths(ctx)
}

// niches returns the distinct niches that have scores on the path. A path
// with no scores refreshes its root niche.
func (r *Refresher) niches(ctx context.Context, pathID string) ([]string, error) {
	scores, err := r.pipeline.deps.Store.ListScores(ctx, pathID, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, s := range scores {
		if !seen[s.NicheID] {
			seen[s.NicheID] = true
			ids = append(ids, s.NicheID)
		}
	}
	if len(ids) == 0 {
		root := r.pipeline.deps.Resolver.ResolveUserNiche(ctx, pathID, "")
		ids = append(ids, root.NicheID)
	}
	sort.Strings(ids)
	return ids, nil
}
