package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/fetcher"
	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/niche"
	"github.com/pathwise/trendintel/internal/progress"
	"github.com/pathwise/trendintel/internal/signal"
	"github.com/pathwise/trendintel/internal/store"
)

var (
	// ErrNoData means no source is configured and nothing is stored.
	ErrNoData = errors.New("no data")

	// ErrNoDataSources means the run scored stored data without fetching.
	ErrNoDataSources = errors.New("no data sources configured")

	// ErrNoNewData means the fetch stage stored nothing new.
	ErrNoNewData = errors.New("no new data")

	// ErrInsufficientData means too few keywords were scored.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConcurrentRun is returned under the reject policy when a run for the
	// path is already in flight.
	ErrConcurrentRun = errors.New("pipeline already running for path")

	// ErrPanic wraps a recovered panic.
	ErrPanic = errors.New("pipeline panic")
)

// Outcome is what callers observe of a run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Policy decides what a second run for an in-flight path does.
type Policy string

const (
	PolicyJoin   Policy = "join"
	PolicyReject Policy = "reject"
)

// Config tunes the scheduler.
type Config struct {
	MinKeywords     int           // Scored keywords needed for a full result (default: 3)
	StalenessWindow time.Duration // Scores younger than this are fresh (default: 24h)
	RetentionDays   int           // Age after which signals and data points are removed (default: 30)
	Policy          Policy        // join (default) or reject
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinKeywords:     config.DefaultMinKeywords,
		StalenessWindow: config.DefaultStalenessWindow,
		RetentionDays:   config.DefaultRetentionDays,
		Policy:          PolicyJoin,
	}
}

// ConfigFrom maps the pipeline section of the file config.
func ConfigFrom(cfg config.PipelineConfig) Config {
	return Config{
		MinKeywords:     cfg.MinKeywords,
		StalenessWindow: cfg.StalenessWindow,
		RetentionDays:   cfg.RetentionDays,
		Policy:          Policy(cfg.ConcurrentPolicy),
	}
}

// NicheResolver maps user input to a niche.
type NicheResolver interface {
	ResolveUserNiche(ctx context.Context, pathID, interest string) niche.Resolution
	ResolveNicheID(ctx context.Context, pathID, nicheID string) (niche.Resolution, bool)
}

// DataFetcher refreshes raw data points for a niche.
type DataFetcher interface {
	RefreshNicheData(ctx context.Context, nicheID string, keywords []string) (fetcher.FetchResult, error)
	GetDataSourceStatus() []fetcher.SourceStatus
	HasAnyDataSource() bool
}

// Scorer rescores stored data and aggregates stored scores.
type Scorer interface {
	RefreshScores(ctx context.Context, pathID, nicheID string) ([]model.TrendScore, error)
	ComputeTrendInsight(ctx context.Context, pathID, nicheID, label string) (model.TrendInsight, error)
}

// SignalService derives and prunes market signals.
type SignalService interface {
	GenerateSignalsFromTrendScores(ctx context.Context, pathID string, scores []model.TrendScore) ([]model.MarketSignal, error)
	CleanupStaleSignals(ctx context.Context, maxAgeDays int) (signal.CleanupResult, error)
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Resolver NicheResolver
	Fetcher  DataFetcher
	Scorer   Scorer
	Signals  SignalService
	Store    store.Store
	Observer progress.Observer
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	PathID     string                `json:"pathId"`
	NicheID    string                `json:"nicheId"`
	NicheLabel string                `json:"nicheLabel"`
	Outcome    Outcome               `json:"outcome"`
	Stage      model.Stage           `json:"stage"`
	Reason     string                `json:"reason,omitempty"`
	Err        error                 `json:"-"`
	Joined     bool                  `json:"joined"`

	// RequestedNicheID is set on a joined result when the caller resolved a
	// different niche than the run it joined.
	RequestedNicheID string `json:"requestedNicheId,omitempty"`

	Fetch      *fetcher.FetchResult  `json:"fetch,omitempty"`
	Scores     int                   `json:"scores"`
	Signals    []model.MarketSignal  `json:"signals"`
	Cleanup    *signal.CleanupResult `json:"cleanup,omitempty"`
	Purged     int64                 `json:"purgedDataPoints"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt"`
}

// run is one in-flight registry entry.
type run struct {
	done   chan struct{}
	result RunResult
}

// Pipeline coordinates the resolver, fetcher, engine and signal service.
type Pipeline struct {
	cfg      Config
	deps     Deps
	observer progress.Observer
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]*run
	status   map[string]model.PipelineRun
}

// New creates a Pipeline. Zero config fields fall back to DefaultConfig.
func New(cfg Config, deps Deps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MinKeywords <= 0 {
		cfg.MinKeywords = def.MinKeywords
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = def.StalenessWindow
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = def.RetentionDays
	}
	if cfg.Policy == "" {
		cfg.Policy = def.Policy
	}

	observer := deps.Observer
	if observer == nil {
		observer = progress.Discard
	}

	return &Pipeline{
		cfg:      cfg,
		deps:     deps,
		observer: observer,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]*run),
		status:   make(map[string]model.PipelineRun),
	}
}

// Interest joins the niche and sub-sector inputs into one resolver query.
func Interest(nicheName, subSector string) string {
	return strings.TrimSpace(strings.TrimSpace(nicheName) + " " + strings.TrimSpace(subSector))
}

// RunFullPipeline resolves the niche and runs every stage for the path.
//
// Runs are keyed by path. Under the join policy a caller arriving while the
// path is busy gets the in-flight run's result, even when that run is for
// another niche; RequestedNicheID and Reason then name the mismatch.
func (p *Pipeline) RunFullPipeline(ctx context.Context, pathID, nicheName, subSector string) RunResult {
	res := p.deps.Resolver.ResolveUserNiche(ctx, pathID, Interest(nicheName, subSector))
	return p.runResolved(ctx, pathID, res)
}

// RefreshIfStale runs the pipeline only when the niche's newest score is
// older than the staleness window. The bool reports whether a run happened.
func (p *Pipeline) RefreshIfStale(ctx context.Context, pathID, nicheName, subSector string) (RunResult, bool) {
	res := p.deps.Resolver.ResolveUserNiche(ctx, pathID, Interest(nicheName, subSector))
	return p.refreshResolved(ctx, pathID, res)
}

func (p *Pipeline) refreshResolved(ctx context.Context, pathID string, res niche.Resolution) (RunResult, bool) {
	fresh, err := p.isFresh(ctx, pathID, res.NicheID)
	if err != nil {
		p.logger.Warn("freshness check failed, running pipeline", "path_id", pathID, "niche_id", res.NicheID, "err", err)
	}
	if fresh {
		p.logger.Debug("scores fresh, skipping run", "path_id", pathID, "niche_id", res.NicheID)
		return RunResult{}, false
	}
	return p.runResolved(ctx, pathID, res), true
}

func (p *Pipeline) isFresh(ctx context.Context, pathID, nicheID string) (bool, error) {
	scores, err := p.deps.Store.ListScores(ctx, pathID, nicheID)
	if err != nil {
		return false, err
	}
	var newest time.Time
	for _, s := range scores {
		if s.LastUpdated.After(newest) {
			newest = s.LastUpdated
		}
	}
	return !newest.IsZero() && p.now().Sub(newest) < p.cfg.StalenessWindow, nil
}

// Status returns the latest known state of a path's run.
func (p *Pipeline) Status(pathID string) (model.PipelineRun, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.status[pathID]
	return r, ok
}

// ComputeTrendInsight resolves the niche and aggregates its stored scores.
func (p *Pipeline) ComputeTrendInsight(ctx context.Context, pathID, nicheName, subSector string) (model.TrendInsight, error) {
	res := p.deps.Resolver.ResolveUserNiche(ctx, pathID, Interest(nicheName, subSector))
	insight, err := p.deps.Scorer.ComputeTrendInsight(ctx, pathID, res.NicheID, res.Label)
	if err != nil {
		return model.TrendInsight{}, fmt.Errorf("insight for %s/%s: %w", pathID, res.NicheID, err)
	}
	return insight, nil
}

// GetDataSourceStatus reports every source adapter.
func (p *Pipeline) GetDataSourceStatus() []fetcher.SourceStatus {
	return p.deps.Fetcher.GetDataSourceStatus()
}

// HasAnyDataSource reports whether any source adapter is configured.
func (p *Pipeline) HasAnyDataSource() bool {
	return p.deps.Fetcher.HasAnyDataSource()
}

// runResolved applies the in-flight registry around execute.
func (p *Pipeline) runResolved(ctx context.Context, pathID string, res niche.Resolution) RunResult {
	p.mu.Lock()
	if r, ok := p.inflight[pathID]; ok {
		p.mu.Unlock()
		return p.onConflict(ctx, pathID, res, r)
	}
	r := &run{done: make(chan struct{})}
	p.inflight[pathID] = r
	p.mu.Unlock()

	r.result = p.execute(ctx, pathID, res)

	p.mu.Lock()
	delete(p.inflight, pathID)
	p.mu.Unlock()
	close(r.done)

	return r.result
}

func (p *Pipeline) onConflict(ctx context.Context, pathID string, res niche.Resolution, r *run) RunResult {
	if p.cfg.Policy == PolicyReject {
		p.logger.Info("rejecting concurrent run", "path_id", pathID)
		now := p.now()
		return RunResult{
			PathID:     pathID,
			NicheID:    res.NicheID,
			NicheLabel: res.Label,
			Outcome:    OutcomeFailure,
			Stage:      model.StageFailed,
			Reason:     ErrConcurrentRun.Error(),
			Err:        ErrConcurrentRun,
			StartedAt:  now,
			FinishedAt: now,
		}
	}

	p.logger.Info("joining in-flight run", "path_id", pathID)
	select {
	case <-r.done:
		joined := r.result
		joined.Joined = true
		if res.NicheID != joined.NicheID {
			joined.RequestedNicheID = res.NicheID
			if joined.Reason == "" {
				joined.Reason = fmt.Sprintf("joined in-flight run for niche %s instead of %s", joined.NicheID, res.NicheID)
			}
		}
		return joined
	case <-ctx.Done():
		now := p.now()
		return RunResult{
			PathID:     pathID,
			NicheID:    res.NicheID,
			NicheLabel: res.Label,
			Outcome:    OutcomeFailure,
			Stage:      model.StageFailed,
			Reason:     ctx.Err().Error(),
			Err:        ctx.Err(),
			Joined:     true,
			StartedAt:  now,
			FinishedAt: now,
		}
	}
}
