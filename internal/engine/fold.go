package engine

import (
	"sort"
	"time"

	"github.com/pathwise/trendintel/internal/model"
)

// Metrics is the folded view of one keyword across all of its data points.
type Metrics struct {
	SearchVolume       *float64
	GrowthRate7d       *float64
	GrowthRate30d      *float64
	GrowthRate90d      *float64
	CPC                *float64
	AffiliateDensity   *float64
	AdsDensity         *float64
	ContentDensity     *float64
	CreatorDensity     *float64
	EngagementVelocity *float64

	// CPCTrend is +1 rising, -1 falling, 0 flat or unknown.
	CPCTrend int

	Confidence float64 // mean over folded points
	DataSource model.DataSource
	Points     int
}

// Fold collapses a keyword's points into one metric set. When any point is
// real, fallback points are ignored. For each field the value from the latest
// date wins; equal dates prefer the higher confidence.
func Fold(points []model.TrendDataPoint) Metrics {
	used := selectSource(points)
	if len(used) == 0 {
		return Metrics{}
	}

	ordered := append([]model.TrendDataPoint(nil), used...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Confidence != b.Confidence {
			return a.Confidence < b.Confidence
		}
		return a.FetchedAt.Before(b.FetchedAt)
	})

	var m Metrics
	var confSum float64
	for _, p := range ordered {
		overlay(&m.SearchVolume, p.SearchVolume)
		overlay(&m.GrowthRate7d, p.GrowthRate7d)
		overlay(&m.GrowthRate30d, p.GrowthRate30d)
		overlay(&m.GrowthRate90d, p.GrowthRate90d)
		overlay(&m.CPC, p.CPC)
		overlay(&m.AffiliateDensity, p.AffiliateDensity)
		overlay(&m.AdsDensity, p.AdsDensity)
		overlay(&m.ContentDensity, p.ContentDensity)
		overlay(&m.CreatorDensity, p.CreatorDensity)
		overlay(&m.EngagementVelocity, p.EngagementVelocity)
		confSum += p.Confidence
	}

	m.Points = len(ordered)
	m.Confidence = round2(confSum / float64(len(ordered)))
	m.DataSource = model.DataSourceReal
	if ordered[0].IsFallback() {
		m.DataSource = model.DataSourceFallback
	}
	m.CPCTrend = cpcTrend(ordered, m.GrowthRate7d)
	return m
}

// selectSource keeps real points when there are any, otherwise fallback ones.
func selectSource(points []model.TrendDataPoint) []model.TrendDataPoint {
	var live, fallback []model.TrendDataPoint
	for _, p := range points {
		if p.IsFallback() {
			fallback = append(fallback, p)
		} else {
			live = append(live, p)
		}
	}
	if len(live) > 0 {
		return live
	}
	return fallback
}

func overlay(dst **float64, v *float64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

// cpcTrend compares the earliest and latest CPC observations of ordered
// points. With a single observation day the 7d search growth stands in for the
// direction.
func cpcTrend(ordered []model.TrendDataPoint, growth7d *float64) int {
	var first, last *model.TrendDataPoint
	for i := range ordered {
		if ordered[i].CPC == nil {
			continue
		}
		if first == nil {
			first = &ordered[i]
		}
		last = &ordered[i]
	}
	if first == nil {
		return 0
	}

	if first.Date.Equal(last.Date) {
		return sign(val(growth7d, 0))
	}
	return sign(*last.CPC - *first.CPC)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// ScoreKeywords scores every keyword in points. When the niche has any real
// data, keywords backed only by fallback data are skipped so a niche's scores
// never mix sources. Results are ordered by score descending, then keyword.
func ScoreKeywords(pathID, nicheID string, points []model.TrendDataPoint, now time.Time) []model.TrendScore {
	byKeyword := make(map[string][]model.TrendDataPoint)
	anyReal := false
	for _, p := range points {
		byKeyword[p.Keyword] = append(byKeyword[p.Keyword], p)
		if !p.IsFallback() {
			anyReal = true
		}
	}

	scores := make([]model.TrendScore, 0, len(byKeyword))
	for kw, pts := range byKeyword {
		m := Fold(pts)
		if anyReal && m.DataSource == model.DataSourceFallback {
			continue
		}
		scores = append(scores, ScoreMetrics(pathID, nicheID, kw, m, now))
	}

	sortScores(scores)
	return scores
}

// ScoreMetrics scores one folded keyword.
func ScoreMetrics(pathID, nicheID, keyword string, m Metrics, now time.Time) model.TrendScore {
	sub := Subscores(m)
	lifecycle, matched := ClassifyRule(m)
	return model.TrendScore{
		PathID:           pathID,
		NicheID:          nicheID,
		Keyword:          keyword,
		Score:            OpportunityScore(sub),
		Subscores:        sub,
		Lifecycle:        lifecycle,
		LifecycleDefault: !matched,
		Risk:             AssessRisk(lifecycle, sub.Competition),
		LastUpdated:      now.UTC(),
		DataSource:       m.DataSource,
		SearchVolume:     val(m.SearchVolume, 0),
		GrowthRate7d:     val(m.GrowthRate7d, 0),
		Confidence:       m.Confidence,
		DataPoints:       m.Points,
	}
}
