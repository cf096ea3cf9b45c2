// Package engine implements the Intelligence Engine: deterministic keyword
// scoring, lifecycle classification and per-niche aggregation.
//
//	opportunity = momentum*0.35 + monetization*0.30 + supplyGap*0.25 - competition*0.10
//
// Every subscore is normalized to [0, 100] and the final score is clamped to
// the same range. A missing metric contributes its neutral midpoint. Scoring
// reads only stored data points; nothing generated downstream is ever fed back.
package engine
