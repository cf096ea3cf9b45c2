package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/pathwise/trendintel/internal/model"
)

// DateLayout is the wire format for observation days.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD or RFC 3339 date to a UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
	}
	return model.Day(t), nil
}

// FormatDate renders a day in wire format.
func FormatDate(t time.Time) string {
	return model.Day(t).Format(DateLayout)
}

// NormalizeKeyword lower-cases a keyword and collapses inner whitespace.
// "  Investasi   Untuk Pemula " -> "investasi untuk pemula"
func NormalizeKeyword(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ToDataPoint converts a wire observation into a data point for the given niche.
// Ratio fields are clamped to [0, 1] and counts to >= 0.
func (p APITrendPoint) ToDataPoint(nicheID, platform, source string, confidence float64, fetchedAt time.Time) (model.TrendDataPoint, error) {
	keyword := NormalizeKeyword(p.Keyword)
	if keyword == "" {
		return model.TrendDataPoint{}, fmt.Errorf("missing keyword")
	}

	date, err := ParseDate(p.Date)
	if err != nil {
		return model.TrendDataPoint{}, err
	}

	return model.TrendDataPoint{
		NicheID:            nicheID,
		Keyword:            keyword,
		Platform:           platform,
		Date:               date,
		SearchVolume:       clampPtr(p.SearchVolume, 0, 100),
		GrowthRate7d:       copyPtr(p.GrowthRate7d),
		GrowthRate30d:      copyPtr(p.GrowthRate30d),
		GrowthRate90d:      copyPtr(p.GrowthRate90d),
		CPC:                clampPtr(p.CPC, 0, -1),
		AffiliateDensity:   clampPtr(p.AffiliateDensity, 0, 1),
		AdsDensity:         clampPtr(p.AdsDensity, 0, 1),
		ContentDensity:     clampPtr(p.ContentDensity, 0, -1),
		CreatorDensity:     clampPtr(p.CreatorDensity, 0, -1),
		EngagementVelocity: copyPtr(p.EngagementVelocity),
		Source:             source,
		Confidence:         confidence,
		FetchedAt:          fetchedAt.UTC(),
	}, nil
}

func copyPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return model.Float(*v)
}

// clampPtr bounds v to [lo, hi]; hi < lo means no upper bound.
func clampPtr(v *float64, lo, hi float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	if x < lo {
		x = lo
	}
	if hi >= lo && x > hi {
		x = hi
	}
	return model.Float(x)
}
