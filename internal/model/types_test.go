package model

import (
	"testing"
	"time"
)

func TestDataPointKey(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)

	a := TrendDataPoint{
		NicheID:  "audience.finance",
		Keyword:  "investasi",
		Platform: "search",
		Date:     time.Date(2026, 3, 2, 5, 30, 0, 0, loc), // 2026-03-01 22:30 UTC
	}
	b := a
	b.Date = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if a.Key() != b.Key() {
		t.Errorf("Key() differs for same UTC day: %v vs %v", a.Key(), b.Key())
	}

	c := a
	c.Platform = "video"
	if a.Key() == c.Key() {
		t.Error("Key() should differ when platform differs")
	}
}

func TestDay(t *testing.T) {
	got := Day(time.Date(2026, 1, 15, 23, 59, 59, 0, time.UTC))
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
}

func TestLifecycle_IsGrowth(t *testing.T) {
	tests := []struct {
		lifecycle Lifecycle
		want      bool
	}{
		{LifecycleSocialSpike, true},
		{LifecycleSearchIncrease, true},
		{LifecycleAffiliateFlood, false},
		{LifecycleSaturation, false},
		{LifecycleMarginCollapse, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.lifecycle), func(t *testing.T) {
			if got := tt.lifecycle.IsGrowth(); got != tt.want {
				t.Errorf("IsGrowth() = %v, want %v", got, tt.want)
			}
		})
	}

	if len(Lifecycles) != 5 {
		t.Errorf("len(Lifecycles) = %d, want 5", len(Lifecycles))
	}
}

func TestNicheTaxonomyNode_IsRoot(t *testing.T) {
	parent := "content_monetization"
	root := NicheTaxonomyNode{ID: parent, PathID: parent}
	child := NicheTaxonomyNode{ID: "audience.finance", ParentID: &parent, PathID: parent, Depth: 1}

	if !root.IsRoot() {
		t.Error("root.IsRoot() = false, want true")
	}
	if child.IsRoot() {
		t.Error("child.IsRoot() = true, want false")
	}
}

func TestTrendDataPoint_IsFallback(t *testing.T) {
	p := TrendDataPoint{Source: SourceFallback}
	if !p.IsFallback() {
		t.Error("IsFallback() = false, want true")
	}
	p.Source = "search-trends"
	if p.IsFallback() {
		t.Error("IsFallback() = true, want false")
	}
}
