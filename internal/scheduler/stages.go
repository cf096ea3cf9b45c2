package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/niche"
	"github.com/pathwise/trendintel/internal/progress"
)

// Progress percentages reported on entering each stage.
const (
	percentFetching  = 10
	percentScoring   = 40
	percentSignaling = 70
	percentCleaning  = 90
	percentDone      = 100
)

// execute runs the stages in order. Cancellation is checked between stages.
// A panic anywhere becomes a failure result.
func (p *Pipeline) execute(ctx context.Context, pathID string, res niche.Resolution) (result RunResult) {
	result = RunResult{
		PathID:     pathID,
		NicheID:    res.NicheID,
		NicheLabel: res.Label,
		StartedAt:  p.now(),
	}
	p.setStatus(pathID, res.NicheID, model.StageIdle, 0, "", result.StartedAt)

	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("pipeline panic recovered",
				"path_id", pathID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result = p.fail(result, fmt.Errorf("%w: %v", ErrPanic, rec))
		}
		result.FinishedAt = p.now()
	}()

	p.logger.Info("pipeline started",
		"path_id", pathID,
		"niche_id", res.NicheID,
		"keywords", len(res.Keywords),
		"synthetic", res.Synthetic,
	)

	// FETCHING
	if err := ctx.Err(); err != nil {
		return p.fail(result, err)
	}
	p.enter(&result, model.StageFetching, percentFetching, fmt.Sprintf("fetching %d keywords", len(res.Keywords)))

	var partial error
	if p.deps.Fetcher.HasAnyDataSource() {
		fr, err := p.deps.Fetcher.RefreshNicheData(ctx, res.NicheID, res.Keywords)
		result.Fetch = &fr
		if err != nil {
			return p.fail(result, err)
		}
		if !fr.NewData() {
			partial = ErrNoNewData
		}
	} else {
		p.logger.Warn("no data sources configured, scoring stored data", "path_id", pathID)
		partial = ErrNoDataSources
	}

	stored, err := p.deps.Store.ListDataPoints(ctx, res.NicheID, time.Time{})
	if err != nil {
		return p.fail(result, fmt.Errorf("load data points: %w", err))
	}
	if len(stored) == 0 {
		return p.fail(result, ErrNoData)
	}

	// SCORING
	if err := ctx.Err(); err != nil {
		return p.fail(result, err)
	}
	p.enter(&result, model.StageScoring, percentScoring, fmt.Sprintf("scoring %d data points", len(stored)))

	scores, err := p.deps.Scorer.RefreshScores(ctx, pathID, res.NicheID)
	if err != nil {
		return p.fail(result, err)
	}
	result.Scores = len(scores)
	if len(scores) < p.cfg.MinKeywords {
		partial = fmt.Errorf("%w: %d of %d keywords scored", ErrInsufficientData, len(scores), p.cfg.MinKeywords)
	}

	// SIGNALING
	if err := ctx.Err(); err != nil {
		return p.fail(result, err)
	}
	p.enter(&result, model.StageSignaling, percentSignaling, fmt.Sprintf("generating signals from %d scores", len(scores)))

	signals, err := p.deps.Signals.GenerateSignalsFromTrendScores(ctx, pathID, scores)
	if err != nil {
		return p.fail(result, err)
	}
	result.Signals = signals

	// CLEANING
	if err := ctx.Err(); err != nil {
		return p.fail(result, err)
	}
	p.enter(&result, model.StageCleaning, percentCleaning, "removing stale signals and data points")

	cleanup, err := p.deps.Signals.CleanupStaleSignals(ctx, p.cfg.RetentionDays)
	if err != nil {
		return p.fail(result, err)
	}
	result.Cleanup = &cleanup

	cutoff := model.Day(p.now()).AddDate(0, 0, -p.cfg.RetentionDays)
	purged, err := p.deps.Store.DeleteDataPointsBefore(ctx, cutoff)
	if err != nil {
		return p.fail(result, fmt.Errorf("purge data points: %w", err))
	}
	result.Purged = purged

	if partial != nil {
		result.Outcome = OutcomePartial
		result.Reason = partial.Error()
		result.Err = partial
		p.enter(&result, model.StagePartialDone, percentDone, partial.Error())
	} else {
		result.Outcome = OutcomeSuccess
		p.enter(&result, model.StageDone, percentDone, fmt.Sprintf("%d signals", len(signals)))
	}

	p.logger.Info("pipeline finished",
		"path_id", pathID,
		"niche_id", res.NicheID,
		"outcome", result.Outcome,
		"scores", result.Scores,
		"signals", len(result.Signals),
		"duration", p.now().Sub(result.StartedAt),
	)
	return result
}

// enter records a stage transition and notifies the observer.
func (p *Pipeline) enter(result *RunResult, stage model.Stage, percent int, msg string) {
	result.Stage = stage
	p.setStatus(result.PathID, result.NicheID, stage, percent, msg, result.StartedAt)
	p.observer.Observe(progress.Event{
		PathID:  result.PathID,
		Stage:   stage,
		Message: msg,
		Percent: percent,
		Time:    p.now(),
	})
}

// fail moves the run to FAILED with err as the reason.
func (p *Pipeline) fail(result RunResult, err error) RunResult {
	failedAt := result.Stage
	result.Outcome = OutcomeFailure
	result.Err = err
	result.Reason = err.Error()

	percent := 0
	if r, ok := p.Status(result.PathID); ok {
		percent = r.Percent
	}
	p.enter(&result, model.StageFailed, percent, err.Error())

	p.logger.Warn("pipeline failed",
		"path_id", result.PathID,
		"niche_id", result.NicheID,
		"stage", failedAt,
		"err", err,
	)
	return result
}

func (p *Pipeline) setStatus(pathID, nicheID string, stage model.Stage, percent int, msg string, started time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[pathID] = model.PipelineRun{
		PathID:    pathID,
		NicheID:   nicheID,
		Stage:     stage,
		Percent:   percent,
		Message:   msg,
		StartedAt: started,
		UpdatedAt: p.now(),
	}
}
