// Package signal turns the top trend scores of a path into persisted market
// signals and removes signals that have gone stale.
//
// Suggestions come from a fixed (lifecycle, direction) template table. No
// free-form text is generated.
package signal
