package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Taxonomy
// -----------------------------------------------------------------------------

// NicheTaxonomyNode is a node of the niche tree for one economic path.
type NicheTaxonomyNode struct {
	ID       string   // Primary key (e.g., "audience.finance")
	ParentID *string  // nil for roots
	Label    string   // Display label
	PathID   string   // Economic path tag (e.g., "content_monetization")
	Depth    int      // 0 for roots, parent.Depth+1 otherwise
	Aliases  []string // Keyword phrases that identify this niche
}

// IsRoot reports whether the node has no parent.
func (n NicheTaxonomyNode) IsRoot() bool {
	return n.ParentID == nil
}

// -----------------------------------------------------------------------------
// Raw data points
// -----------------------------------------------------------------------------

// SourceFallback tags data points produced from baseline estimates rather than
// a live source.
const SourceFallback = "fallback"

// DataPointKey is the natural key of a TrendDataPoint.
type DataPointKey struct {
	NicheID  string
	Keyword  string
	Platform string
	Date     time.Time
}

// TrendDataPoint is one observation of a keyword on one platform for one day.
type TrendDataPoint struct {
	NicheID  string
	Keyword  string
	Platform string    // "search", "video", "social", "news", ...
	Date     time.Time // UTC day

	SearchVolume       *float64 // Relative search interest (0-100 index)
	GrowthRate7d       *float64 // Percent
	GrowthRate30d      *float64 // Percent
	GrowthRate90d      *float64 // Percent
	CPC                *float64 // Cost per click (USD)
	AffiliateDensity   *float64 // 0-1
	AdsDensity         *float64 // 0-1
	ContentDensity     *float64 // Number of competing pieces of content
	CreatorDensity     *float64 // Number of active creators
	EngagementVelocity *float64 // Percent change in engagement

	Source     string    // Adapter name, or SourceFallback
	Confidence float64   // 0-1
	FetchedAt  time.Time // When the adapter produced this record
}

// Key returns the natural key with the date normalized to a UTC day.
func (p TrendDataPoint) Key() DataPointKey {
	return DataPointKey{
		NicheID:  p.NicheID,
		Keyword:  p.Keyword,
		Platform: p.Platform,
		Date:     Day(p.Date),
	}
}

// IsFallback reports whether the point came from baseline estimates.
func (p TrendDataPoint) IsFallback() bool {
	return p.Source == SourceFallback
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v. Used for optional metric literals.
func Float(v float64) *float64 {
	return &v
}

// -----------------------------------------------------------------------------
// Scores
// -----------------------------------------------------------------------------

// Lifecycle is a keyword's market maturity phase.
type Lifecycle string

const (
	LifecycleSocialSpike    Lifecycle = "social_spike"
	LifecycleSearchIncrease Lifecycle = "search_increase"
	LifecycleAffiliateFlood Lifecycle = "affiliate_flood"
	LifecycleSaturation     Lifecycle = "saturation"
	LifecycleMarginCollapse Lifecycle = "margin_collapse"
)

// Lifecycles lists all phases in market order.
var Lifecycles = []Lifecycle{
	LifecycleSocialSpike,
	LifecycleSearchIncrease,
	LifecycleAffiliateFlood,
	LifecycleSaturation,
	LifecycleMarginCollapse,
}

// IsGrowth reports whether the phase counts toward growthKeywords. Every other
// phase counts as mature.
func (l Lifecycle) IsGrowth() bool {
	return l == LifecycleSocialSpike || l == LifecycleSearchIncrease
}

// Risk is the coarse risk bucket attached to a score.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// DataSource tags whether a score or insight was computed from live or fallback data.
type DataSource string

const (
	DataSourceReal     DataSource = "real"
	DataSourceFallback DataSource = "fallback"
)

// Subscores are the normalized (0-100) inputs to the opportunity score.
type Subscores struct {
	Momentum     float64 `json:"momentum"`
	Monetization float64 `json:"monetization"`
	SupplyGap    float64 `json:"supplyGap"`
	Competition  float64 `json:"competition"`
}

// TrendScore is the derived, per-keyword opportunity score.
type TrendScore struct {
	PathID      string     `json:"pathId"`
	NicheID     string     `json:"nicheId"`
	Keyword     string     `json:"keyword"`
	Score       float64    `json:"score"`
	Subscores   Subscores  `json:"subscores"`
	Lifecycle   Lifecycle  `json:"lifecycle"`
	Risk        Risk       `json:"risk"`
	LastUpdated time.Time  `json:"lastUpdated"`
	DataSource  DataSource `json:"dataSource"`

	// LifecycleDefault is set when no lifecycle rule matched and Lifecycle
	// holds the mature default.
	LifecycleDefault bool `json:"lifecycleDefault,omitempty"`

	// Inputs carried forward for signal generation.
	SearchVolume float64 `json:"searchVolume"`
	GrowthRate7d float64 `json:"growthRate7d"`
	Confidence   float64 `json:"confidence"`
	DataPoints   int     `json:"dataPoints"`
}

// TrendInsight aggregates all current scores of one niche.
type TrendInsight struct {
	PathID          string       `json:"pathId"`
	NicheLabel      string       `json:"nicheLabel"`
	Scores          []TrendScore `json:"scores"`
	OverallScore    float64      `json:"overallScore"`
	DataPointsTotal float64      `json:"dataPointsTotal"`
	GrowthKeywords  int          `json:"growthKeywords"`
	MatureKeywords  int          `json:"matureKeywords"`
	LastUpdated     time.Time    `json:"lastUpdated"`
	DataSource      DataSource   `json:"dataSource"`
}

// -----------------------------------------------------------------------------
// Signals
// -----------------------------------------------------------------------------

// Direction is the short-term trend direction of a signal.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionStable  Direction = "stable"
)

// MarketSignal is a persisted, user-facing derivation of a top-scoring keyword.
type MarketSignal struct {
	ID             uuid.UUID      `json:"id"`
	PathID         string         `json:"pathId"`
	Keyword        string         `json:"keyword"`
	TrendScore     float64        `json:"trendScore"`
	TrendDirection Direction      `json:"trendDirection"`
	Source         string         `json:"source"`
	Confidence     float64        `json:"confidence"`
	IsHot          bool           `json:"isHot"`
	Suggestion     string         `json:"suggestion"`
	Metadata       map[string]any `json:"metadata"`
	LastUpdated    time.Time      `json:"lastUpdated"`
}

// DataPointStats summarizes stored data points for health checks.
type DataPointStats struct {
	Count       int
	Keywords    int
	LastFetched time.Time
}

// -----------------------------------------------------------------------------
// Pipeline runs
// -----------------------------------------------------------------------------

// Stage is a pipeline run state.
type Stage string

const (
	StageIdle        Stage = "IDLE"
	StageFetching    Stage = "FETCHING"
	StageScoring     Stage = "SCORING"
	StageSignaling   Stage = "SIGNALING"
	StageCleaning    Stage = "CLEANING"
	StageDone        Stage = "DONE"
	StagePartialDone Stage = "PARTIAL_DONE"
	StageFailed      Stage = "FAILED"
)

// Terminal reports whether no further transitions follow the stage.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StagePartialDone || s == StageFailed
}

// PipelineRun is the in-memory state of one in-flight or finished run.
type PipelineRun struct {
	PathID    string    `json:"pathId"`
	NicheID   string    `json:"nicheId,omitempty"`
	Stage     Stage     `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
