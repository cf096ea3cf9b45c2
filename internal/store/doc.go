// Package store persists the four pipeline tables:
//
//   - niche_taxonomy: seeded once, read-only at runtime
//   - trend_data_points: upsert by natural key, range reads by date, delete by age
//   - trend_scores: replaced per niche on every scoring run
//   - market_signals: upserted by (path_id, keyword), deleted per path
//
// Every multi-row write runs in one transaction so readers never observe a
// partially applied batch. Three backends share the Store contract: Memory
// (tests and ephemeral runs), Postgres (pgx) and SQLite (modernc).
package store
