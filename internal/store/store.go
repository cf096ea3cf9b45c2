package store

import (
	"context"
	"errors"
	"time"

	"github.com/pathwise/trendintel/internal/model"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// TaxonomyStore reads and seeds the niche tree.
type TaxonomyStore interface {
	// UpsertNiches inserts or replaces taxonomy nodes by ID.
	UpsertNiches(ctx context.Context, nodes []model.NicheTaxonomyNode) error

	// ListNiches returns all nodes for a path, ordered by depth then ID.
	ListNiches(ctx context.Context, pathID string) ([]model.NicheTaxonomyNode, error)
}

// DataPointStore holds raw observations.
type DataPointStore interface {
	// UpsertDataPoints writes points by natural key in a single transaction.
	// Callers resolve conflicts before writing; the store overwrites.
	UpsertDataPoints(ctx context.Context, points []model.TrendDataPoint) error

	// ListDataPoints returns points of a niche dated on or after since.
	ListDataPoints(ctx context.Context, nicheID string, since time.Time) ([]model.TrendDataPoint, error)

	// DeleteDataPointsBefore removes points dated before cutoff.
	DeleteDataPointsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DataPointStats summarizes all stored points.
	DataPointStats(ctx context.Context) (model.DataPointStats, error)
}

// ScoreStore holds derived scores.
type ScoreStore interface {
	// ReplaceScores atomically swaps all scores of a niche.
	ReplaceScores(ctx context.Context, pathID, nicheID string, scores []model.TrendScore) error

	// ListScores returns scores of a path, limited to one niche when nicheID is set.
	ListScores(ctx context.Context, pathID, nicheID string) ([]model.TrendScore, error)
}

// SignalStore holds market signals.
type SignalStore interface {
	// UpsertSignals writes signals by (path_id, keyword) in a single transaction.
	// Existing rows keep their ID. Returns the stored rows.
	UpsertSignals(ctx context.Context, signals []model.MarketSignal) ([]model.MarketSignal, error)

	// ListSignals returns all signals of a path ordered by score descending.
	ListSignals(ctx context.Context, pathID string) ([]model.MarketSignal, error)

	// ListSignalPaths returns every path that has at least one signal.
	ListSignalPaths(ctx context.Context) ([]string, error)

	// DeleteSignals removes the given keywords of one path in a single transaction.
	DeleteSignals(ctx context.Context, pathID string, keywords []string) (int64, error)
}

// Store is the full persistence contract used by the pipeline.
type Store interface {
	TaxonomyStore
	DataPointStore
	ScoreStore
	SignalStore

	Ping(ctx context.Context) error
	Close() error
}
