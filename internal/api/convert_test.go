package api

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{" 2026-03-01 ", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2026-03-01T23:30:00-02:00", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"01/03/2026", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeKeyword(t *testing.T) {
	tests := map[string]string{
		"  Investasi   Untuk Pemula ": "investasi untuk pemula",
		"SAHAM":                       "saham",
		"":                            "",
		"\tai\n":                      "ai",
	}
	for in, want := range tests {
		if got := NormalizeKeyword(in); got != want {
			t.Errorf("NormalizeKeyword(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAPITrendPointToDataPoint(t *testing.T) {
	fetched := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	p := APITrendPoint{
		Keyword:          " Investasi Untuk Pemula",
		Date:             "2026-03-01",
		SearchVolume:     ptr(140),
		GrowthRate30d:    ptr(-12),
		AffiliateDensity: ptr(1.4),
		ContentDensity:   ptr(-3),
	}

	dp, err := p.ToDataPoint("audience.finance", "search", "search-trends", 0.8, fetched)
	if err != nil {
		t.Fatalf("ToDataPoint failed: %v", err)
	}
	if dp.Keyword != "investasi untuk pemula" {
		t.Errorf("Keyword = %q", dp.Keyword)
	}
	if dp.NicheID != "audience.finance" || dp.Platform != "search" || dp.Source != "search-trends" {
		t.Errorf("identity = %s/%s/%s", dp.NicheID, dp.Platform, dp.Source)
	}
	if *dp.SearchVolume != 100 {
		t.Errorf("SearchVolume = %v, want clamped 100", *dp.SearchVolume)
	}
	if *dp.GrowthRate30d != -12 {
		t.Errorf("GrowthRate30d = %v, want -12", *dp.GrowthRate30d)
	}
	if *dp.AffiliateDensity != 1 {
		t.Errorf("AffiliateDensity = %v, want clamped 1", *dp.AffiliateDensity)
	}
	if *dp.ContentDensity != 0 {
		t.Errorf("ContentDensity = %v, want clamped 0", *dp.ContentDensity)
	}
	if dp.CPC != nil {
		t.Error("CPC should stay nil")
	}
	if dp.FetchedAt.Location() != time.UTC {
		t.Errorf("FetchedAt location = %v, want UTC", dp.FetchedAt.Location())
	}

	// Returned pointers must not alias the wire struct.
	*p.GrowthRate30d = 99
	if *dp.GrowthRate30d != -12 {
		t.Error("GrowthRate30d aliases the input")
	}

	if _, err := (APITrendPoint{Date: "2026-03-01"}).ToDataPoint("n", "search", "s", 1, fetched); err == nil {
		t.Error("expected error for missing keyword")
	}
	if _, err := (APITrendPoint{Keyword: "x", Date: "bad"}).ToDataPoint("n", "search", "s", 1, fetched); err == nil {
		t.Error("expected error for bad date")
	}
}
