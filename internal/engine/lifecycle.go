package engine

import "github.com/pathwise/trendintel/internal/model"

// Lifecycle thresholds. Growth and velocity values are percentages.
const (
	// social_spike
	SpikeVelocityMin  = 50.0 // engagement velocity above this
	SpikeSearchGrowth = 5.0  // while 7d search growth stays below this

	// search_increase
	SearchGrowth30dMin = 20.0 // 30d growth above this with CPC rising

	// affiliate_flood
	FloodCPCMin       = 2.0
	FloodAffiliateMin = 0.7

	// saturation
	SaturationContentMin  = 10000.0
	SaturationVelocityMax = 0.0 // flat or declining engagement

	// margin_collapse
	CollapseSupplyRatio = 500.0 // content items per unit of search volume
)

// Classify returns the first lifecycle stage whose rule matches, in order:
//
//  1. social_spike:    velocity > 50 and 7d growth < 5
//  2. search_increase: 30d growth > 20 and CPC rising
//  3. affiliate_flood: CPC >= 2.0 and affiliate density >= 0.7
//  4. saturation:      content >= 10000 and velocity <= 0
//  5. margin_collapse: CPC falling, velocity < 0, content/volume >= 500
//
// A rule whose inputs are missing does not match. When nothing matches the
// keyword is treated as mature and reported as saturation.
func Classify(m Metrics) model.Lifecycle {
	l, _ := ClassifyRule(m)
	return l
}

// ClassifyRule is Classify that also reports whether a rule matched. A false
// result means the saturation stage is the mature default.
func ClassifyRule(m Metrics) (model.Lifecycle, bool) {
	ev, g7, g30 := m.EngagementVelocity, m.GrowthRate7d, m.GrowthRate30d
	cpc, aff, content := m.CPC, m.AffiliateDensity, m.ContentDensity

	switch {
	case ev != nil && g7 != nil && *ev > SpikeVelocityMin && *g7 < SpikeSearchGrowth:
		return model.LifecycleSocialSpike, true

	case g30 != nil && *g30 > SearchGrowth30dMin && m.CPCTrend > 0:
		return model.LifecycleSearchIncrease, true

	case cpc != nil && aff != nil && *cpc >= FloodCPCMin && *aff >= FloodAffiliateMin:
		return model.LifecycleAffiliateFlood, true

	case content != nil && ev != nil && *content >= SaturationContentMin && *ev <= SaturationVelocityMax:
		return model.LifecycleSaturation, true

	case content != nil && ev != nil && m.CPCTrend < 0 && *ev < 0 &&
		*content/max(val(m.SearchVolume, 0), 1) >= CollapseSupplyRatio:
		return model.LifecycleMarginCollapse, true
	}

	return model.LifecycleSaturation, false
}

// Risk thresholds on the competition subscore.
const (
	LowRiskCompetitionMax  = 50.0
	HighRiskCompetitionMin = 75.0
)

// AssessRisk derives the risk bucket from lifecycle and competition.
func AssessRisk(l model.Lifecycle, competition float64) model.Risk {
	switch {
	case l == model.LifecycleMarginCollapse || competition >= HighRiskCompetitionMin:
		return model.RiskHigh
	case l.IsGrowth() && competition < LowRiskCompetitionMax:
		return model.RiskLow
	default:
		return model.RiskMedium
	}
}
