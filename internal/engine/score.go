package engine

import (
	"math"

	"github.com/pathwise/trendintel/internal/model"
)

// Formula weights.
const (
	WeightMomentum     = 0.35
	WeightMonetization = 0.30
	WeightSupplyGap    = 0.25
	WeightCompetition  = 0.10
)

// Normalization constants.
const (
	neutral = 50.0

	// momentum: recent growth weighted highest
	growthWeight7d   = 0.5
	growthWeight30d  = 0.3
	growthWeight90d  = 0.2
	growthScale      = 1.5 // +1% blended growth = +1.5 points
	velocityScale    = 2.5 // +1% engagement velocity = +2.5 points
	momentumGrowth   = 0.8
	momentumVelocity = 0.2

	// monetization
	cpcCeiling      = 2.5 // CPC at or above this maps to 100
	monetizationCPC = 0.5
	monetizationAff = 0.25
	monetizationAds = 0.25

	// supply gap
	demandVolume   = 0.6
	demandCreators = 0.4
	creatorHalf    = 1000.0 // creator density that halves the creator term
	contentLogMax  = 6.0    // log10(1e6 items) maps to 100

	// competition
	competitionContent = 0.6
	competitionAds     = 0.4
)

// Momentum blends growth rates with engagement velocity.
func Momentum(m Metrics) float64 {
	blend := growthWeight7d*val(m.GrowthRate7d, 0) +
		growthWeight30d*val(m.GrowthRate30d, 0) +
		growthWeight90d*val(m.GrowthRate90d, 0)
	growth := clamp(neutral + blend*growthScale)
	velocity := clamp(neutral + val(m.EngagementVelocity, 0)*velocityScale)
	return momentumGrowth*growth + momentumVelocity*velocity
}

// Monetization increases with CPC, affiliate density and ads density.
func Monetization(m Metrics) float64 {
	cpc := neutral
	if m.CPC != nil {
		cpc = clamp(*m.CPC / cpcCeiling * 100)
	}
	return monetizationCPC*cpc +
		monetizationAff*ratio(m.AffiliateDensity) +
		monetizationAds*ratio(m.AdsDensity)
}

// SupplyGap is demand (volume and creator scarcity) minus content supply.
func SupplyGap(m Metrics) float64 {
	creators := neutral
	if m.CreatorDensity != nil {
		creators = 100 / (1 + math.Max(*m.CreatorDensity, 0)/creatorHalf)
	}
	demand := demandVolume*val(m.SearchVolume, neutral) + demandCreators*creators
	return clamp(neutral + demand - contentSupply(m))
}

// Competition increases with content density and ads saturation.
func Competition(m Metrics) float64 {
	return competitionContent*contentSupply(m) + competitionAds*ratio(m.AdsDensity)
}

// Subscores computes all four subscores.
func Subscores(m Metrics) model.Subscores {
	return model.Subscores{
		Momentum:     round2(Momentum(m)),
		Monetization: round2(Monetization(m)),
		SupplyGap:    round2(SupplyGap(m)),
		Competition:  round2(Competition(m)),
	}
}

// OpportunityScore applies the fixed formula to the subscores.
func OpportunityScore(s model.Subscores) float64 {
	return round2(clamp(s.Momentum*WeightMomentum +
		s.Monetization*WeightMonetization +
		s.SupplyGap*WeightSupplyGap -
		s.Competition*WeightCompetition))
}

// contentSupply maps content density to [0, 100] on a log scale.
func contentSupply(m Metrics) float64 {
	if m.ContentDensity == nil {
		return neutral
	}
	return clamp(math.Log10(math.Max(*m.ContentDensity, 0)+1) / contentLogMax * 100)
}

// ratio maps a 0-1 density to [0, 100], neutral when missing.
func ratio(v *float64) float64 {
	if v == nil {
		return neutral
	}
	return clamp(*v * 100)
}

func val(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func clamp(x float64) float64 {
	if math.IsNaN(x) {
		return neutral
	}
	return math.Max(0, math.Min(100, x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
