package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/source"
	"github.com/pathwise/trendintel/internal/store"
)

// ErrPersistence wraps store failures while loading or writing points.
var ErrPersistence = errors.New("persistence error")

// Config holds fetcher configuration.
type Config struct {
	Concurrency   int           // Max adapters in flight (default: 8)
	SourceTimeout time.Duration // Per-adapter timeout (default: 15s)
	StageTimeout  time.Duration // Whole fan-out timeout (default: 45s)
	WindowDays    int           // Days of history requested (default: 30)
	RetentionDays int           // Points older than this are never stored; caps WindowDays when set
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:   config.DefaultFetchConcurrency,
		SourceTimeout: config.DefaultSourceTimeout,
		StageTimeout:  config.DefaultFetchStageTimeout,
		WindowDays:    config.DefaultWindowDays,
	}
}

// ConfigFrom converts the fetch section of the app config. The pipeline
// retention bounds the window so fetched history survives the purge.
func ConfigFrom(cfg config.FetchConfig, pipeline config.PipelineConfig) Config {
	return Config{
		Concurrency:   cfg.Concurrency,
		SourceTimeout: cfg.SourceTimeout,
		StageTimeout:  cfg.StageTimeout,
		WindowDays:    cfg.WindowDays,
		RetentionDays: pipeline.RetentionDays,
	}
}

// SourceStatus reports an adapter's configuration state.
type SourceStatus struct {
	Name       string `json:"name"`
	Platform   string `json:"platform"`
	Configured bool   `json:"configured"`
}

// SourceResult is the outcome of one adapter call.
type SourceResult struct {
	Name     string        `json:"name"`
	Points   int           `json:"points"`
	Err      error         `json:"-"`
	Kind     string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// FetchResult summarizes one refresh of a niche.
type FetchResult struct {
	NicheID   string         `json:"nicheId"`
	Sources   []SourceResult `json:"sources"`
	Fetched   int            `json:"fetched"`
	Inserted  int            `json:"inserted"`
	Replaced  int            `json:"replaced"`
	Unchanged int            `json:"unchanged"`
	Dropped   int            `json:"dropped"` // outside the fetch window
}

// NewData reports whether the refresh stored anything new.
func (r FetchResult) NewData() bool {
	return r.Inserted+r.Replaced > 0
}

// Failed returns the number of adapters that returned an error.
func (r FetchResult) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Fetcher refreshes niche data from source adapters.
type Fetcher struct {
	cfg      Config
	adapters []source.Adapter
	store    store.DataPointStore
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new Fetcher. Zero config fields fall back to DefaultConfig.
func New(cfg Config, adapters []source.Adapter, s store.DataPointStore, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = def.SourceTimeout
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = def.StageTimeout
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.RetentionDays > 0 {
		cfg.WindowDays = min(cfg.WindowDays, cfg.RetentionDays)
	}
	return &Fetcher{
		cfg:      cfg,
		adapters: adapters,
		store:    s,
		logger:   logger,
		now:      time.Now,
	}
}

// GetDataSourceStatus reports every adapter and whether it is configured.
func (f *Fetcher) GetDataSourceStatus() []SourceStatus {
	status := make([]SourceStatus, 0, len(f.adapters))
	for _, a := range f.adapters {
		status = append(status, SourceStatus{
			Name:       a.Name(),
			Platform:   a.Platform(),
			Configured: a.Configured(),
		})
	}
	return status
}

// HasAnyDataSource reports whether at least one adapter is configured.
func (f *Fetcher) HasAnyDataSource() bool {
	for _, a := range f.adapters {
		if a.Configured() {
			return true
		}
	}
	return false
}

// RefreshNicheData fetches keywords from every configured adapter, merges the
// results with stored points and writes the changes in one transaction.
// Adapter failures are recorded in the result; the only error returned wraps
// ErrPersistence.
func (f *Fetcher) RefreshNicheData(ctx context.Context, nicheID string, keywords []string) (FetchResult, error) {
	start := f.now()
	result := FetchResult{NicheID: nicheID}

	var active []source.Adapter
	for _, a := range f.adapters {
		if a.Configured() {
			active = append(active, a)
		}
	}
	if len(active) == 0 || len(keywords) == 0 {
		f.logger.Debug("nothing to fetch", "niche_id", nicheID, "sources", len(active), "keywords", len(keywords))
		return result, nil
	}

	window := source.NewDateWindow(start, f.cfg.WindowDays)
	results, incoming := f.fanOut(ctx, active, keywords, window)
	result.Sources = results

	// Adapters may return history past the window; those points would be
	// purged at the end of the run and re-inserted on the next one.
	kept := incoming[:0]
	for _, dp := range incoming {
		if !window.Contains(dp.Date) {
			result.Dropped++
			continue
		}
		dp.NicheID = nicheID
		kept = append(kept, dp)
	}
	incoming = kept
	result.Fetched = len(incoming)

	existing, err := f.store.ListDataPoints(ctx, nicheID, window.From)
	if err != nil {
		return result, fmt.Errorf("%w: load data points for %s: %w", ErrPersistence, nicheID, err)
	}

	merged := MergeDataPoints(existing, incoming)
	result.Inserted = merged.Inserted
	result.Replaced = merged.Replaced
	result.Unchanged = merged.Unchanged

	if len(merged.Changed) > 0 {
		if err := f.store.UpsertDataPoints(ctx, merged.Changed); err != nil {
			return result, fmt.Errorf("%w: write data points for %s: %w", ErrPersistence, nicheID, err)
		}
	}

	f.logger.Info("niche refresh complete",
		"niche_id", nicheID,
		"sources", len(active),
		"failed", result.Failed(),
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"replaced", result.Replaced,
		"dropped", result.Dropped,
		"duration", f.now().Sub(start),
	)

	return result, nil
}

// fanOut calls every adapter concurrently and returns per-adapter results in
// adapter order plus all points received before the stage deadline.
func (f *Fetcher) fanOut(ctx context.Context, adapters []source.Adapter, keywords []string, window source.DateWindow) ([]SourceResult, []model.TrendDataPoint) {
	stageCtx, cancel := context.WithTimeout(ctx, f.cfg.StageTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		closed  bool
		results = make([]SourceResult, len(adapters))
		points  = make([][]model.TrendDataPoint, len(adapters))
		done    = make([]bool, len(adapters))
	)

	var g errgroup.Group
	g.SetLimit(f.cfg.Concurrency)

	for i, a := range adapters {
		g.Go(func() error {
			started := time.Now()
			pts, err := f.fetchOne(stageCtx, a, keywords, window)

			mu.Lock()
			defer mu.Unlock()
			if closed {
				return nil
			}
			results[i] = SourceResult{Name: a.Name(), Points: len(pts), Err: err, Duration: time.Since(started)}
			if err != nil {
				results[i].Kind = string(source.KindOf(err))
			}
			points[i] = pts
			done[i] = true
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		g.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-stageCtx.Done():
		f.logger.Warn("fetch stage timed out", "timeout", f.cfg.StageTimeout)
	}

	mu.Lock()
	defer mu.Unlock()
	closed = true

	var all []model.TrendDataPoint
	for i, a := range adapters {
		if !done[i] {
			err := &source.SourceError{Source: a.Name(), Kind: source.KindTimeout, Err: stageCtx.Err()}
			results[i] = SourceResult{Name: a.Name(), Err: err, Kind: string(source.KindTimeout)}
			f.logger.Warn("source unavailable", "source", a.Name(), "kind", source.KindTimeout)
			continue
		}
		all = append(all, points[i]...)
	}
	return results, all
}

func (f *Fetcher) fetchOne(ctx context.Context, a source.Adapter, keywords []string, window source.DateWindow) ([]model.TrendDataPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.SourceTimeout)
	defer cancel()

	pts, err := a.Fetch(ctx, keywords, window)
	if err != nil {
		err = source.Classify(a.Name(), err)
		f.logger.Warn("source unavailable",
			"source", a.Name(),
			"kind", source.KindOf(err),
			"err", err,
		)
		return nil, err
	}

	f.logger.Debug("source fetched", "source", a.Name(), "points", len(pts))
	return pts, nil
}
