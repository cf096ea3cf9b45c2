package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pathwise/trendintel/internal/api"
	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/model"
)

// FallbackPlatform is the platform recorded on baseline estimates.
const FallbackPlatform = "baseline"

// DefaultFallbackConfidence applies when the fixture does not set one.
const DefaultFallbackConfidence = 0.3

// Baseline holds optional metric estimates for one keyword.
type Baseline struct {
	SearchVolume       *float64 `yaml:"search_volume"`
	GrowthRate7d       *float64 `yaml:"growth_rate_7d"`
	GrowthRate30d      *float64 `yaml:"growth_rate_30d"`
	GrowthRate90d      *float64 `yaml:"growth_rate_90d"`
	CPC                *float64 `yaml:"cpc"`
	AffiliateDensity   *float64 `yaml:"affiliate_density"`
	AdsDensity         *float64 `yaml:"ads_density"`
	ContentDensity     *float64 `yaml:"content_density"`
	CreatorDensity     *float64 `yaml:"creator_density"`
	EngagementVelocity *float64 `yaml:"engagement_velocity"`
}

// Fixture is the on-disk baseline file.
//
//	confidence: 0.3
//	default:
//	  search_volume: 30
//	keywords:
//	  investasi untuk pemula:
//	    search_volume: 60
//	    growth_rate_30d: 25
type Fixture struct {
	Confidence float64             `yaml:"confidence"`
	Default    *Baseline           `yaml:"default"`
	Keywords   map[string]Baseline `yaml:"keywords"`
}

// LoadFixture reads and parses a baseline file. Keyword keys are normalized.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	normalized := make(map[string]Baseline, len(f.Keywords))
	for kw, b := range f.Keywords {
		normalized[api.NormalizeKeyword(kw)] = b
	}
	f.Keywords = normalized

	if f.Confidence <= 0 {
		f.Confidence = DefaultFallbackConfidence
	}
	return &f, nil
}

// FallbackAdapter serves baseline estimates tagged source=fallback. The file is
// read on every fetch so edits apply without a restart.
type FallbackAdapter struct {
	cfg config.FallbackSourceConfig
	now func() time.Time
}

// NewFallbackAdapter creates an adapter over the configured fixture file.
func NewFallbackAdapter(cfg config.FallbackSourceConfig) *FallbackAdapter {
	return &FallbackAdapter{cfg: cfg, now: time.Now}
}

func (a *FallbackAdapter) Name() string     { return model.SourceFallback }
func (a *FallbackAdapter) Platform() string { return FallbackPlatform }

// Configured reports whether the adapter is enabled with a fixture path.
func (a *FallbackAdapter) Configured() bool {
	return a.cfg.Enabled && a.cfg.Path != ""
}

// Fetch returns one point per keyword dated on the window's last day. Keywords
// absent from the fixture use the default baseline, or are skipped without one.
func (a *FallbackAdapter) Fetch(ctx context.Context, keywords []string, window DateWindow) ([]model.TrendDataPoint, error) {
	if !a.Configured() {
		return nil, notConfigured(a.Name())
	}

	fixture, err := LoadFixture(a.cfg.Path)
	if err != nil {
		return nil, &SourceError{Source: a.Name(), Kind: KindBadResponse, Err: err}
	}

	now := a.now().UTC()
	var points []model.TrendDataPoint
	for _, raw := range keywords {
		kw := api.NormalizeKeyword(raw)
		b, ok := fixture.Keywords[kw]
		if !ok {
			if fixture.Default == nil {
				continue
			}
			b = *fixture.Default
		}

		points = append(points, model.TrendDataPoint{
			Keyword:            kw,
			Platform:           FallbackPlatform,
			Date:               window.To,
			SearchVolume:       b.SearchVolume,
			GrowthRate7d:       b.GrowthRate7d,
			GrowthRate30d:      b.GrowthRate30d,
			GrowthRate90d:      b.GrowthRate90d,
			CPC:                b.CPC,
			AffiliateDensity:   b.AffiliateDensity,
			AdsDensity:         b.AdsDensity,
			ContentDensity:     b.ContentDensity,
			CreatorDensity:     b.CreatorDensity,
			EngagementVelocity: b.EngagementVelocity,
			Source:             model.SourceFallback,
			Confidence:         fixture.Confidence,
			FetchedAt:          now,
		})
	}
	return points, nil
}
