package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/store"
)

var (
	// ErrNoScores is returned when a niche has no stored scores.
	ErrNoScores = errors.New("no scores for niche")

	// ErrMixedDataSources is returned when a niche's scores mix real and
	// fallback data.
	ErrMixedDataSources = errors.New("scores mix real and fallback data")
)

// Engine scores stored data points and aggregates stored scores.
type Engine struct {
	points store.DataPointStore
	scores store.ScoreStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Engine. A nil logger uses slog.Default().
func New(points store.DataPointStore, scores store.ScoreStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		points: points,
		scores: scores,
		logger: logger,
		now:    time.Now,
	}
}

// RefreshScores rescores every keyword of the niche from stored points and
// atomically replaces the niche's scores.
func (e *Engine) RefreshScores(ctx context.Context, pathID, nicheID string) ([]model.TrendScore, error) {
	points, err := e.points.ListDataPoints(ctx, nicheID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load data points for %s: %w", nicheID, err)
	}

	scores := ScoreKeywords(pathID, nicheID, points, e.now())
	if err := e.scores.ReplaceScores(ctx, pathID, nicheID, scores); err != nil {
		return nil, fmt.Errorf("replace scores for %s: %w", nicheID, err)
	}

	e.logger.Info("niche scored",
		"path_id", pathID,
		"niche_id", nicheID,
		"points", len(points),
		"keywords", len(scores),
	)
	return scores, nil
}

// ComputeTrendInsight aggregates the stored scores of one niche.
func (e *Engine) ComputeTrendInsight(ctx context.Context, pathID, nicheID, label string) (model.TrendInsight, error) {
	scores, err := e.scores.ListScores(ctx, pathID, nicheID)
	if err != nil {
		return model.TrendInsight{}, fmt.Errorf("load scores for %s: %w", nicheID, err)
	}
	return Aggregate(pathID, label, scores)
}

// Aggregate builds an insight from one niche's scores. Scores are ordered by
// score descending, then keyword.
func Aggregate(pathID, label string, scores []model.TrendScore) (model.TrendInsight, error) {
	if len(scores) == 0 {
		return model.TrendInsight{}, ErrNoScores
	}

	insight := model.TrendInsight{
		PathID:     pathID,
		NicheLabel: label,
		Scores:     append([]model.TrendScore(nil), scores...),
		DataSource: scores[0].DataSource,
	}

	var total float64
	for _, s := range scores {
		if s.DataSource != insight.DataSource {
			return model.TrendInsight{}, fmt.Errorf("%w: %s and %s", ErrMixedDataSources, insight.DataSource, s.DataSource)
		}
		total += s.Score
		insight.DataPointsTotal += s.SearchVolume
		if s.Lifecycle.IsGrowth() {
			insight.GrowthKeywords++
		} else {
			insight.MatureKeywords++
		}
		if s.LastUpdated.After(insight.LastUpdated) {
			insight.LastUpdated = s.LastUpdated
		}
	}
	insight.OverallScore = round2(total / float64(len(scores)))

	sortScores(insight.Scores)
	return insight, nil
}

func sortScores(scores []model.TrendScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Keyword < scores[j].Keyword
	})
}
