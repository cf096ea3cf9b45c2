package signal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/store"
)

const (
	DefaultTopK          = 10
	DefaultHotThreshold  = 50.0
	DefaultMaxAgeDays    = 30
	DirectionBandPercent = 5.0 // |growth_rate_7d| within this band is stable
	SourceTrendEngine    = "trend_engine"
)

// Config tunes signal generation.
type Config struct {
	TopK         int
	HotThreshold float64
}

// Store is the persistence the service needs.
type Store interface {
	store.ScoreStore
	store.SignalStore
}

// Service generates and cleans up market signals.
type Service struct {
	cfg    Config
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service. Zero config values take their defaults.
func New(cfg Config, s Store, logger *slog.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.HotThreshold <= 0 {
		cfg.HotThreshold = DefaultHotThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// Direction maps 7-day growth to a trend direction.
func Direction(growth7d float64) model.Direction {
	switch {
	case growth7d > DirectionBandPercent:
		return model.DirectionRising
	case growth7d < -DirectionBandPercent:
		return model.DirectionFalling
	default:
		return model.DirectionStable
	}
}

// IsHot reports whether a score qualifies as a hot signal.
func IsHot(s model.TrendScore, threshold float64) bool {
	return s.Score > threshold && s.Lifecycle == model.LifecycleSearchIncrease
}

// TopScores returns at most k scores, one per keyword, ordered by score
// descending, then search volume descending, then keyword.
func TopScores(scores []model.TrendScore, k int) []model.TrendScore {
	ordered := append([]model.TrendScore(nil), scores...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SearchVolume != b.SearchVolume {
			return a.SearchVolume > b.SearchVolume
		}
		return a.Keyword < b.Keyword
	})

	seen := make(map[string]bool, len(ordered))
	top := make([]model.TrendScore, 0, min(k, len(ordered)))
	for _, s := range ordered {
		if len(top) == k {
			break
		}
		if seen[s.Keyword] {
			continue
		}
		seen[s.Keyword] = true
		top = append(top, s)
	}
	return top
}

// GenerateSignalsFromTrendScores upserts one signal per top-scoring keyword
// of the path and returns the stored signals ordered by score descending.
func (s *Service) GenerateSignalsFromTrendScores(ctx context.Context, pathID string, scores []model.TrendScore) ([]model.MarketSignal, error) {
	top := TopScores(scores, s.cfg.TopK)
	if len(top) == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	signals := make([]model.MarketSignal, 0, len(top))
	for _, ts := range top {
		signals = append(signals, s.toSignal(pathID, ts, now))
	}

	stored, err := s.store.UpsertSignals(ctx, signals)
	if err != nil {
		return nil, fmt.Errorf("upsert signals for %s: %w", pathID, err)
	}

	sort.SliceStable(stored, func(i, j int) bool {
		if stored[i].TrendScore != stored[j].TrendScore {
			return stored[i].TrendScore > stored[j].TrendScore
		}
		return stored[i].Keyword < stored[j].Keyword
	})

	var hot int
	for _, sig := range stored {
		if sig.IsHot {
			hot++
		}
	}
	s.logger.Info("signals generated",
		"path_id", pathID,
		"candidates", len(scores),
		"signals", len(stored),
		"hot", hot,
	)
	return stored, nil
}

func (s *Service) toSignal(pathID string, ts model.TrendScore, now time.Time) model.MarketSignal {
	dir := Direction(ts.GrowthRate7d)
	return model.MarketSignal{
		ID:             uuid.New(),
		PathID:         pathID,
		Keyword:        ts.Keyword,
		TrendScore:     ts.Score,
		TrendDirection: dir,
		Source:         SourceTrendEngine,
		Confidence:     ts.Confidence,
		IsHot:          IsHot(ts, s.cfg.HotThreshold),
		Suggestion:     Suggestion(ts.Lifecycle, dir, ts.Keyword),
		Metadata: map[string]any{
			"niche_id":          ts.NicheID,
			"lifecycle":         string(ts.Lifecycle),
			"lifecycle_default": ts.LifecycleDefault,
			"risk":              string(ts.Risk),
			"data_source":       string(ts.DataSource),
			"search_volume":     ts.SearchVolume,
			"growth_rate_7d":    ts.GrowthRate7d,
			"data_points":       ts.DataPoints,
			"subscores": map[string]any{
				"momentum":     ts.Subscores.Momentum,
				"monetization": ts.Subscores.Monetization,
				"supply_gap":   ts.Subscores.SupplyGap,
				"competition":  ts.Subscores.Competition,
			},
		},
		LastUpdated: now,
	}
}
