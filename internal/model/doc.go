// Package model defines shared data types used across the trend intelligence pipeline.
//
// All types mirror the four logical tables: niche_taxonomy, trend_data_points,
// trend_scores and market_signals.
//
// Conventions:
//   - Growth rates are percentages (12.5 = +12.5%)
//   - Densities in [0,1] are ratios; content/creator densities are raw counts
//   - Optional metrics are *float64; nil means the source did not report the field
//   - Dates are UTC calendar days truncated to midnight
package model
