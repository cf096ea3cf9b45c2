package signal

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult summarizes one cleanup pass.
type CleanupResult struct {
	Paths    int   // paths scanned
	Scanned  int   // signals inspected
	Expired  int   // older than the age threshold
	Orphaned int   // no backing trend score
	Deleted  int64 // rows removed
}

// CleanupStaleSignals removes signals older than maxAgeDays, one transaction
// per path. A signal whose trend score is gone is counted as orphaned and is
// removed once it is also past the threshold; signals younger than the
// threshold are never deleted. maxAgeDays <= 0 uses DefaultMaxAgeDays.
func (s *Service) CleanupStaleSignals(ctx context.Context, maxAgeDays int) (CleanupResult, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	cutoff := s.now().UTC().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	var res CleanupResult
	paths, err := s.store.ListSignalPaths(ctx)
	if err != nil {
		return res, fmt.Errorf("list signal paths: %w", err)
	}

	for _, pathID := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Paths++

		signals, err := s.store.ListSignals(ctx, pathID)
		if err != nil {
			return res, fmt.Errorf("list signals for %s: %w", pathID, err)
		}
		scores, err := s.store.ListScores(ctx, pathID, "")
		if err != nil {
			return res, fmt.Errorf("list scores for %s: %w", pathID, err)
		}
		backed := make(map[string]bool, len(scores))
		for _, sc := range scores {
			backed[sc.Keyword] = true
		}

		var stale []string
		for _, sig := range signals {
			res.Scanned++
			if !backed[sig.Keyword] {
				res.Orphaned++
			}
			if sig.LastUpdated.Before(cutoff) {
				res.Expired++
				stale = append(stale, sig.Keyword)
			}
		}
		if len(stale) == 0 {
			continue
		}

		n, err := s.store.DeleteSignals(ctx, pathID, stale)
		if err != nil {
			return res, fmt.Errorf("delete stale signals for %s: %w", pathID, err)
		}
		res.Deleted += n
		s.logger.Info("stale signals removed", "path_id", pathID, "deleted", n)
	}

	return res, nil
}
