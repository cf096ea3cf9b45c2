package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pathwise/trendintel/internal/model"
)

type scoreKey struct {
	nicheID string
	keyword string
}

type signalKey struct {
	pathID  string
	keyword string
}

// Memory is an in-process Store guarded by a single RWMutex.
type Memory struct {
	mu     sync.RWMutex
	closed bool

	niches  map[string]model.NicheTaxonomyNode
	points  map[model.DataPointKey]model.TrendDataPoint
	scores  map[scoreKey]model.TrendScore
	signals map[signalKey]model.MarketSignal
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		niches:  make(map[string]model.NicheTaxonomyNode),
		points:  make(map[model.DataPointKey]model.TrendDataPoint),
		scores:  make(map[scoreKey]model.TrendScore),
		signals: make(map[signalKey]model.MarketSignal),
	}
}

// UpsertNiches inserts or replaces taxonomy nodes.
func (m *Memory) UpsertNiches(ctx context.Context, nodes []model.NicheTaxonomyNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, n := range nodes {
		n.Aliases = slices.Clone(n.Aliases)
		m.niches[n.ID] = n
	}
	return nil
}

// ListNiches returns all nodes of a path.
func (m *Memory) ListNiches(ctx context.Context, pathID string) ([]model.NicheTaxonomyNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var result []model.NicheTaxonomyNode
	for _, n := range m.niches {
		if n.PathID == pathID {
			n.Aliases = slices.Clone(n.Aliases)
			result = append(result, n)
		}
	}
	sortNiches(result)
	return result, nil
}

// UpsertDataPoints writes points by natural key.
func (m *Memory) UpsertDataPoints(ctx context.Context, points []model.TrendDataPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, p := range points {
		p.Date = model.Day(p.Date)
		m.points[p.Key()] = p
	}
	return nil
}

// ListDataPoints returns points of a niche dated on or after since.
func (m *Memory) ListDataPoints(ctx context.Context, nicheID string, since time.Time) ([]model.TrendDataPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	since = model.Day(since)
	var result []model.TrendDataPoint
	for _, p := range m.points {
		if p.NicheID == nicheID && !p.Date.Before(since) {
			result = append(result, p)
		}
	}
	sortDataPoints(result)
	return result, nil
}

// DeleteDataPointsBefore removes points dated before cutoff.
func (m *Memory) DeleteDataPointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	cutoff = model.Day(cutoff)
	var deleted int64
	for k, p := range m.points {
		if p.Date.Before(cutoff) {
			delete(m.points, k)
			deleted++
		}
	}
	return deleted, nil
}

// DataPointStats summarizes all stored points.
func (m *Memory) DataPointStats(ctx context.Context) (model.DataPointStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return model.DataPointStats{}, ErrClosed
	}

	keywords := make(map[string]struct{})
	var stats model.DataPointStats
	for _, p := range m.points {
		stats.Count++
		keywords[p.Keyword] = struct{}{}
		if p.FetchedAt.After(stats.LastFetched) {
			stats.LastFetched = p.FetchedAt
		}
	}
	stats.Keywords = len(keywords)
	return stats, nil
}

// ReplaceScores swaps all scores of a niche.
func (m *Memory) ReplaceScores(ctx context.Context, pathID, nicheID string, scores []model.TrendScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for k := range m.scores {
		if k.nicheID == nicheID {
			delete(m.scores, k)
		}
	}
	for _, s := range scores {
		s.PathID = pathID
		s.NicheID = nicheID
		m.scores[scoreKey{nicheID: nicheID, keyword: s.Keyword}] = s
	}
	return nil
}

// ListScores returns scores of a path, optionally limited to one niche.
func (m *Memory) ListScores(ctx context.Context, pathID, nicheID string) ([]model.TrendScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var result []model.TrendScore
	for _, s := range m.scores {
		if s.PathID != pathID {
			continue
		}
		if nicheID != "" && s.NicheID != nicheID {
			continue
		}
		result = append(result, s)
	}
	sortScores(result)
	return result, nil
}

// UpsertSignals writes signals by (path_id, keyword), preserving existing IDs.
func (m *Memory) UpsertSignals(ctx context.Context, signals []model.MarketSignal) ([]model.MarketSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	stored := make([]model.MarketSignal, 0, len(signals))
	for _, s := range signals {
		k := signalKey{pathID: s.PathID, keyword: s.Keyword}
		if existing, ok := m.signals[k]; ok {
			s.ID = existing.ID
		} else if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.Metadata = maps.Clone(s.Metadata)
		m.signals[k] = s
		stored = append(stored, s)
	}
	return stored, nil
}

// ListSignals returns all signals of a path.
func (m *Memory) ListSignals(ctx context.Context, pathID string) ([]model.MarketSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var result []model.MarketSignal
	for k, s := range m.signals {
		if k.pathID == pathID {
			s.Metadata = maps.Clone(s.Metadata)
			result = append(result, s)
		}
	}
	sortSignals(result)
	return result, nil
}

// ListSignalPaths returns every path that has at least one signal.
func (m *Memory) ListSignalPaths(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	seen := make(map[string]struct{})
	for k := range m.signals {
		seen[k.pathID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// DeleteSignals removes the given keywords of one path.
func (m *Memory) DeleteSignals(ctx context.Context, pathID string, keywords []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	var deleted int64
	for _, kw := range keywords {
		k := signalKey{pathID: pathID, keyword: kw}
		if _, ok := m.signals[k]; ok {
			delete(m.signals, k)
			deleted++
		}
	}
	return deleted, nil
}

// Ping reports whether the store is open.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// -----------------------------------------------------------------------------
// Ordering shared by all backends
// -----------------------------------------------------------------------------

func sortNiches(nodes []model.NicheTaxonomyNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func sortDataPoints(points []model.TrendDataPoint) {
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Keyword != b.Keyword {
			return a.Keyword < b.Keyword
		}
		return a.Platform < b.Platform
	})
}

func sortScores(scores []model.TrendScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].Keyword != scores[j].Keyword {
			return scores[i].Keyword < scores[j].Keyword
		}
		return scores[i].NicheID < scores[j].NicheID
	})
}

func sortSignals(signals []model.MarketSignal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].TrendScore != signals[j].TrendScore {
			return signals[i].TrendScore > signals[j].TrendScore
		}
		return strings.Compare(signals[i].Keyword, signals[j].Keyword) < 0
	})
}
