package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/model"
)

const testFixture = `
confidence: 0.25
default:
  search_volume: 30
keywords:
  Investasi Untuk Pemula:
    search_volume: 60
    growth_rate_30d: 25
    cpc: 1.2
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baseline.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestFallbackAdapter_Fetch(t *testing.T) {
	a := NewFallbackAdapter(config.FallbackSourceConfig{Enabled: true, Path: writeFixture(t, testFixture)})
	now := time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	window := NewDateWindow(now, 7)

	points, err := a.Fetch(context.Background(), []string{"investasi untuk pemula", "saham"}, window)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}

	byKeyword := make(map[string]model.TrendDataPoint)
	for _, p := range points {
		if !p.IsFallback() {
			t.Errorf("%s: Source = %q, want fallback", p.Keyword, p.Source)
		}
		if p.Confidence != 0.25 {
			t.Errorf("%s: Confidence = %v, want 0.25", p.Keyword, p.Confidence)
		}
		if !p.Date.Equal(window.To) {
			t.Errorf("%s: Date = %v, want window end", p.Keyword, p.Date)
		}
		byKeyword[p.Keyword] = p
	}

	inv := byKeyword["investasi untuk pemula"]
	if inv.SearchVolume == nil || *inv.SearchVolume != 60 || *inv.CPC != 1.2 {
		t.Errorf("explicit baseline not applied: %+v", inv)
	}
	saham := byKeyword["saham"]
	if saham.SearchVolume == nil || *saham.SearchVolume != 30 {
		t.Errorf("default baseline not applied: %+v", saham)
	}
	if saham.CPC != nil {
		t.Error("unset default metric should stay nil")
	}
}

func TestFallbackAdapter_NoDefault(t *testing.T) {
	path := writeFixture(t, "keywords:\n  saham:\n    search_volume: 40\n")
	a := NewFallbackAdapter(config.FallbackSourceConfig{Enabled: true, Path: path})

	points, err := a.Fetch(context.Background(), []string{"saham", "crypto"}, NewDateWindow(time.Now(), 7))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(points) != 1 || points[0].Keyword != "saham" {
		t.Errorf("points = %+v, want only saham", points)
	}
	if points[0].Confidence != DefaultFallbackConfidence {
		t.Errorf("Confidence = %v, want default %v", points[0].Confidence, DefaultFallbackConfidence)
	}
}

func TestFallbackAdapter_BadFixture(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml")},
		{"invalid yaml", writeFixture(t, "keywords: [unclosed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewFallbackAdapter(config.FallbackSourceConfig{Enabled: true, Path: tt.path})
			_, err := a.Fetch(context.Background(), []string{"saham"}, NewDateWindow(time.Now(), 7))
			if KindOf(err) != KindBadResponse {
				t.Errorf("err = %v, want bad_response", err)
			}
		})
	}
}

func TestLoadFixture_Example(t *testing.T) {
	f, err := LoadFixture("../../configs/baseline.example.yaml")
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	if f.Confidence != 0.3 {
		t.Errorf("Confidence = %g, want 0.3", f.Confidence)
	}
	if f.Default == nil || f.Default.SearchVolume == nil || *f.Default.SearchVolume != 30 {
		t.Errorf("Default = %+v", f.Default)
	}
	b, ok := f.Keywords["investasi untuk pemula"]
	if !ok || b.CPC == nil || *b.CPC != 1.2 {
		t.Errorf("Keywords[investasi untuk pemula] = %+v, ok = %v", b, ok)
	}
}
