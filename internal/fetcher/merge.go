package fetcher

import (
	"sort"

	"github.com/pathwise/trendintel/internal/model"
)

// MergeResult is the outcome of merging an incoming batch into existing points.
type MergeResult struct {
	Points    []model.TrendDataPoint // full merged set
	Changed   []model.TrendDataPoint // inserted or replaced, to be written
	Inserted  int
	Replaced  int
	Unchanged int // incoming records that lost to a stored one
}

type mergeState uint8

const (
	stateExisting mergeState = iota
	stateInserted
	stateReplaced
)

type mergeEntry struct {
	point model.TrendDataPoint
	state mergeState
}

// MergeDataPoints dedups by natural key. On collision the record with strictly
// higher confidence wins wholesale; equal confidence prefers the later
// FetchedAt. Nothing is ever removed, and merging the same batch twice leaves
// the result unchanged.
func MergeDataPoints(existing, incoming []model.TrendDataPoint) MergeResult {
	entries := make(map[model.DataPointKey]*mergeEntry, len(existing)+len(incoming))
	for _, p := range existing {
		p.Date = model.Day(p.Date)
		k := p.Key()
		if cur, ok := entries[k]; ok && !wins(p, cur.point) {
			continue
		}
		entries[k] = &mergeEntry{point: p, state: stateExisting}
	}

	var res MergeResult
	for _, p := range incoming {
		p.Date = model.Day(p.Date)
		k := p.Key()

		cur, ok := entries[k]
		if !ok {
			entries[k] = &mergeEntry{point: p, state: stateInserted}
			res.Inserted++
			continue
		}
		if !wins(p, cur.point) {
			res.Unchanged++
			continue
		}

		cur.point = p
		if cur.state == stateExisting {
			cur.state = stateReplaced
			res.Replaced++
		}
	}

	for _, e := range entries {
		res.Points = append(res.Points, e.point)
		if e.state != stateExisting {
			res.Changed = append(res.Changed, e.point)
		}
	}
	sortPoints(res.Points)
	sortPoints(res.Changed)
	return res
}

// wins reports whether candidate replaces current.
func wins(candidate, current model.TrendDataPoint) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return candidate.FetchedAt.After(current.FetchedAt)
}

func sortPoints(points []model.TrendDataPoint) {
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
