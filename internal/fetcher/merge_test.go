package fetcher

import (
	"reflect"
	"testing"
	"time"

	"github.com/pathwise/trendintel/internal/model"
)

var mergeDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func mergePoint(keyword string, confidence float64, volume float64, fetched time.Duration) model.TrendDataPoint {
	return model.TrendDataPoint{
		NicheID:      "audience.finance",
		Keyword:      keyword,
		Platform:     "search",
		Date:         mergeDay,
		SearchVolume: model.Float(volume),
		CPC:          model.Float(volume / 100),
		Source:       "search-trends",
		Confidence:   confidence,
		FetchedAt:    mergeDay.Add(fetched),
	}
}

func TestMergeDataPoints_HigherConfidenceWinsWholesale(t *testing.T) {
	high := mergePoint("investasi", 0.85, 74, time.Hour)
	low := mergePoint("investasi", 0.70, 20, 2*time.Hour)
	low.GrowthRate7d = model.Float(99)

	for _, order := range [][2]model.TrendDataPoint{{high, low}, {low, high}} {
		res := MergeDataPoints([]model.TrendDataPoint{order[0]}, []model.TrendDataPoint{order[1]})
		if len(res.Points) != 1 {
			t.Fatalf("len(Points) = %d, want 1", len(res.Points))
		}
		if !reflect.DeepEqual(res.Points[0], high) {
			t.Errorf("merged = %+v, want the 0.85 record in full", res.Points[0])
		}
	}
}

func TestMergeDataPoints_TiePrefersLaterFetch(t *testing.T) {
	older := mergePoint("saham", 0.8, 40, time.Hour)
	newer := mergePoint("saham", 0.8, 45, 3*time.Hour)

	res := MergeDataPoints([]model.TrendDataPoint{older}, []model.TrendDataPoint{newer})
	if *res.Points[0].SearchVolume != 45 || res.Replaced != 1 {
		t.Errorf("merged volume = %v replaced = %d, want newer record", *res.Points[0].SearchVolume, res.Replaced)
	}

	res = MergeDataPoints([]model.TrendDataPoint{newer}, []model.TrendDataPoint{older})
	if *res.Points[0].SearchVolume != 45 || res.Unchanged != 1 || len(res.Changed) != 0 {
		t.Errorf("older incoming should lose: %+v", res)
	}
}

func TestMergeDataPoints_Idempotent(t *testing.T) {
	existing := []model.TrendDataPoint{
		mergePoint("investasi", 0.7, 60, time.Hour),
		mergePoint("reksadana", 0.9, 30, time.Hour),
	}
	incoming := []model.TrendDataPoint{
		mergePoint("investasi", 0.85, 74, 2*time.Hour),
		mergePoint("saham", 0.8, 40, 2*time.Hour),
		mergePoint("reksadana", 0.5, 10, 2*time.Hour),
	}

	once := MergeDataPoints(existing, incoming)
	twice := MergeDataPoints(once.Points, incoming)

	if !reflect.DeepEqual(once.Points, twice.Points) {
		t.Errorf("second merge changed state:\nonce  %+v\ntwice %+v", once.Points, twice.Points)
	}
	if len(twice.Changed) != 0 || twice.Inserted != 0 || twice.Replaced != 0 {
		t.Errorf("second merge reported changes: %+v", twice)
	}
	if once.Inserted != 1 || once.Replaced != 1 || once.Unchanged != 1 {
		t.Errorf("counts = %d/%d/%d, want 1 inserted 1 replaced 1 unchanged", once.Inserted, once.Replaced, once.Unchanged)
	}
	if len(once.Changed) != 2 {
		t.Errorf("len(Changed) = %d, want 2", len(once.Changed))
	}
}

func TestMergeDataPoints_NeverDeletes(t *testing.T) {
	existing := []model.TrendDataPoint{
		mergePoint("a", 0.9, 1, 0),
		mergePoint("b", 0.9, 1, 0),
	}
	res := MergeDataPoints(existing, nil)
	if len(res.Points) != 2 || len(res.Changed) != 0 {
		t.Errorf("merge with empty batch = %+v", res)
	}
}

func TestMergeDataPoints_DuplicatesWithinBatch(t *testing.T) {
	a := mergePoint("investasi", 0.6, 10, time.Hour)
	b := mergePoint("investasi", 0.9, 20, time.Hour)
	c := mergePoint("investasi", 0.7, 30, time.Hour)

	res := MergeDataPoints(nil, []model.TrendDataPoint{a, b, c})
	if len(res.Points) != 1 || *res.Points[0].SearchVolume != 20 {
		t.Errorf("Points = %+v, want only the 0.9 record", res.Points)
	}
	if res.Inserted != 1 || res.Replaced != 0 || res.Unchanged != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/0/1", res.Inserted, res.Replaced, res.Unchanged)
	}
}

func TestMergeDataPoints_DateNormalized(t *testing.T) {
	p := mergePoint("investasi", 0.8, 10, 0)
	q := p
	q.Date = mergeDay.Add(15 * time.Hour)
	q.Confidence = 0.9

	res := MergeDataPoints([]model.TrendDataPoint{p}, []model.TrendDataPoint{q})
	if len(res.Points) != 1 {
		t.Errorf("len(Points) = %d, want same-day points to collide", len(res.Points))
	}
}
