package signal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pathwise/trendintel/internal/engine"
	"github.com/pathwise/trendintel/internal/model"
	"github.com/pathwise/trendintel/internal/store"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(s Store, cfg Config) *Service {
	svc := New(cfg, s, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func score(keyword string, value, volume float64) model.TrendScore {
	return model.TrendScore{
		PathID:       "content_monetization",
		NicheID:      "audience.finance",
		Keyword:      keyword,
		Score:        value,
		Lifecycle:    model.LifecycleSaturation,
		Risk:         model.RiskMedium,
		SearchVolume: volume,
		DataSource:   model.DataSourceReal,
		Confidence:   0.8,
	}
}

func TestGenerate_RisingSearchKeywordIsHot(t *testing.T) {
	m := engine.Fold([]model.TrendDataPoint{{
		NicheID:            "audience.finance",
		Keyword:            "investasi untuk pemula",
		Platform:           "search",
		Date:               now,
		SearchVolume:       model.Float(74),
		GrowthRate7d:       model.Float(12.5),
		GrowthRate30d:      model.Float(28.3),
		GrowthRate90d:      model.Float(45.0),
		CPC:                model.Float(1.20),
		AffiliateDensity:   model.Float(0.65),
		AdsDensity:         model.Float(0.55),
		ContentDensity:     model.Float(8500),
		CreatorDensity:     model.Float(320),
		EngagementVelocity: model.Float(4.2),
		Source:             "search-trends",
		Confidence:         0.85,
	}})
	ts := engine.ScoreMetrics("content_monetization", "audience.finance", "investasi untuk pemula", m, now)

	svc := newTestService(store.NewMemory(), Config{})
	signals, err := svc.GenerateSignalsFromTrendScores(context.Background(), "content_monetization", []model.TrendScore{ts})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(signals))
	}

	sig := signals[0]
	if !sig.IsHot {
		t.Errorf("IsHot = false, want true (score %.2f, lifecycle %s)", ts.Score, ts.Lifecycle)
	}
	if sig.TrendDirection != model.DirectionRising {
		t.Errorf("direction = %s, want rising", sig.TrendDirection)
	}
	if !strings.Contains(sig.Suggestion, "investasi untuk pemula") {
		t.Errorf("suggestion %q does not name the keyword", sig.Suggestion)
	}
	if sig.Metadata["lifecycle"] != "search_increase" {
		t.Errorf("metadata lifecycle = %v", sig.Metadata["lifecycle"])
	}
	if sig.Metadata["lifecycle_default"] != false {
		t.Errorf("metadata lifecycle_default = %v, want false", sig.Metadata["lifecycle_default"])
	}
}

func TestIsHot(t *testing.T) {
	tests := []struct {
		score     float64
		lifecycle model.Lifecycle
		want      bool
	}{
		{60, model.LifecycleSearchIncrease, true},
		{50, model.LifecycleSearchIncrease, false},
		{90, model.LifecycleSocialSpike, false},
		{90, model.LifecycleSaturation, false},
	}
	for _, tt := range tests {
		s := model.TrendScore{Score: tt.score, Lifecycle: tt.lifecycle}
		if got := IsHot(s, DefaultHotThreshold); got != tt.want {
			t.Errorf("IsHot(%v, %s) = %v, want %v", tt.score, tt.lifecycle, got, tt.want)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		growth float64
		want   model.Direction
	}{
		{12.5, model.DirectionRising},
		{5.01, model.DirectionRising},
		{5, model.DirectionStable},
		{0, model.DirectionStable},
		{-5, model.DirectionStable},
		{-5.01, model.DirectionFalling},
	}
	for _, tt := range tests {
		if got := Direction(tt.growth); got != tt.want {
			t.Errorf("Direction(%v) = %s, want %s", tt.growth, got, tt.want)
		}
	}
}

func TestTopScores(t *testing.T) {
	scores := []model.TrendScore{
		score("c", 70, 10),
		score("a", 70, 10),
		score("b", 70, 90),
		score("d", 20, 99),
		score("e", 80, 1),
		score("a", 10, 1), // duplicate keyword, lower score
	}

	top := TopScores(scores, 4)
	got := make([]string, len(top))
	for i, s := range top {
		got[i] = s.Keyword
	}
	want := []string{"e", "b", "a", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}
	if top[2].Score != 70 {
		t.Errorf("duplicate kept the lower score: %+v", top[2])
	}

	if n := len(TopScores(scores, 100)); n != 5 {
		t.Errorf("got %d scores, want 5 unique keywords", n)
	}
}

func TestGenerate_SortedUniqueAndStableIDs(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	svc := newTestService(s, Config{TopK: 3})

	scores := []model.TrendScore{
		score("saham", 40, 50),
		score("reksadana", 90, 20),
		score("saham", 35, 50),
		score("investasi", 65, 70),
		score("crypto", 10, 99),
	}

	first, err := svc.GenerateSignalsFromTrendScores(ctx, "content_monetization", scores)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("got %d signals, want 3", len(first))
	}
	seen := map[string]bool{}
	for i, sig := range first {
		if seen[sig.Keyword] {
			t.Errorf("duplicate keyword %q", sig.Keyword)
		}
		seen[sig.Keyword] = true
		if i > 0 && sig.TrendScore > first[i-1].TrendScore {
			t.Errorf("signals not sorted by score: %v", first)
		}
	}

	second, err := svc.GenerateSignalsFromTrendScores(ctx, "content_monetization", scores)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("%s: ID changed on upsert", first[i].Keyword)
		}
	}

	stored, _ := s.ListSignals(ctx, "content_monetization")
	if len(stored) != 3 {
		t.Errorf("stored %d signals, want 3", len(stored))
	}
}

func TestGenerate_RecordsDefaultLifecycle(t *testing.T) {
	matched := score("crowded", 40, 30)
	fallback := score("flat", 30, 30)
	fallback.LifecycleDefault = true

	svc := newTestService(store.NewMemory(), Config{})
	signals, err := svc.GenerateSignalsFromTrendScores(context.Background(), "content_monetization", []model.TrendScore{matched, fallback})
	if err != nil {
		t.Fatal(err)
	}

	got := make(map[string]any)
	for _, sig := range signals {
		got[sig.Keyword] = sig.Metadata["lifecycle_default"]
	}
	if got["crowded"] != false || got["flat"] != true {
		t.Errorf("lifecycle_default = %v, want crowded=false flat=true", got)
	}
}

func TestGenerate_Empty(t *testing.T) {
	svc := newTestService(store.NewMemory(), Config{})
	signals, err := svc.GenerateSignalsFromTrendScores(context.Background(), "p", nil)
	if err != nil || len(signals) != 0 {
		t.Errorf("got %v, %v", signals, err)
	}
}

func TestSuggestion_TableComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, l := range model.Lifecycles {
		for _, d := range []model.Direction{model.DirectionRising, model.DirectionStable, model.DirectionFalling} {
			if _, ok := suggestionTemplates[templateKey{l, d}]; !ok {
				t.Errorf("no template for (%s, %s)", l, d)
			}
			text := Suggestion(l, d, "kw")
			if seen[text] {
				t.Errorf("template for (%s, %s) is not distinct", l, d)
			}
			seen[text] = true
		}
	}
}

func TestCleanupStaleSignals(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	svc := newTestService(s, Config{})

	young := now.Add(-24 * time.Hour)
	old := now.Add(-40 * 24 * time.Hour)

	signals := []model.MarketSignal{
		{PathID: "content_monetization", Keyword: "backed-young", LastUpdated: young},
		{PathID: "content_monetization", Keyword: "orphan-young", LastUpdated: young},
		{PathID: "content_monetization", Keyword: "backed-old", LastUpdated: old},
		{PathID: "local_business", Keyword: "orphan-old", LastUpdated: old},
	}
	if _, err := s.UpsertSignals(ctx, signals); err != nil {
		t.Fatal(err)
	}
	err := s.ReplaceScores(ctx, "content_monetization", "audience.finance", []model.TrendScore{
		score("backed-young", 60, 10),
		score("backed-old", 60, 10),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.CleanupStaleSignals(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	want := CleanupResult{Paths: 2, Scanned: 4, Expired: 2, Orphaned: 2, Deleted: 2}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}

	kept, _ := s.ListSignals(ctx, "content_monetization")
	keywords := map[string]bool{}
	for _, sig := range kept {
		keywords[sig.Keyword] = true
	}
	if !keywords["backed-young"] || !keywords["orphan-young"] {
		t.Errorf("young signals were deleted: %v", keywords)
	}
	if keywords["backed-old"] {
		t.Error("old signal survived cleanup")
	}
	if rest, _ := s.ListSignals(ctx, "local_business"); len(rest) != 0 {
		t.Errorf("local_business still has %d signals", len(rest))
	}

	// A second pass has nothing left to delete.
	res, err = svc.CleanupStaleSignals(ctx, 0)
	if err != nil || res.Deleted != 0 {
		t.Errorf("second pass = %+v, %v", res, err)
	}
}
