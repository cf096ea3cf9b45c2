package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pathwise/trendintel/internal/model"
)

// Dates are stored as YYYY-MM-DD text and timestamps as µs since epoch.
const sqliteDateLayout = "2006-01-02"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS niche_taxonomy (
	id        TEXT PRIMARY KEY,
	parent_id TEXT REFERENCES niche_taxonomy(id),
	label     TEXT NOT NULL,
	path_id   TEXT NOT NULL,
	depth     INTEGER NOT NULL,
	aliases   TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_niche_taxonomy_path ON niche_taxonomy(path_id);

CREATE TABLE IF NOT EXISTS trend_data_points (
	niche_id            TEXT NOT NULL,
	keyword             TEXT NOT NULL,
	platform            TEXT NOT NULL,
	date                TEXT NOT NULL,
	search_volume       REAL,
	growth_rate_7d      REAL,
	growth_rate_30d     REAL,
	growth_rate_90d     REAL,
	cpc                 REAL,
	affiliate_density   REAL,
	ads_density         REAL,
	content_density     REAL,
	creator_density     REAL,
	engagement_velocity REAL,
	source              TEXT NOT NULL,
	confidence          REAL NOT NULL,
	fetched_at          INTEGER NOT NULL,
	PRIMARY KEY (niche_id, keyword, platform, date)
);
CREATE INDEX IF NOT EXISTS idx_trend_data_points_date ON trend_data_points(date);

CREATE TABLE IF NOT EXISTS trend_scores (
	niche_id       TEXT NOT NULL,
	keyword        TEXT NOT NULL,
	path_id        TEXT NOT NULL,
	score          REAL NOT NULL,
	momentum       REAL NOT NULL,
	monetization   REAL NOT NULL,
	supply_gap     REAL NOT NULL,
	competition    REAL NOT NULL,
	lifecycle      TEXT NOT NULL,
	lifecycle_default INTEGER NOT NULL DEFAULT 0,
	risk           TEXT NOT NULL,
	data_source    TEXT NOT NULL,
	search_volume  REAL NOT NULL,
	growth_rate_7d REAL NOT NULL,
	confidence     REAL NOT NULL,
	data_points    INTEGER NOT NULL,
	last_updated   INTEGER NOT NULL,
	PRIMARY KEY (niche_id, keyword)
);
CREATE INDEX IF NOT EXISTS idx_trend_scores_path ON trend_scores(path_id);

CREATE TABLE IF NOT EXISTS market_signals (
	path_id         TEXT NOT NULL,
	keyword         TEXT NOT NULL,
	id              TEXT NOT NULL UNIQUE,
	trend_score     REAL NOT NULL,
	trend_direction TEXT NOT NULL,
	source          TEXT NOT NULL,
	confidence      REAL NOT NULL,
	is_hot          INTEGER NOT NULL,
	suggestion      TEXT NOT NULL,
	metadata        TEXT NOT NULL DEFAULT '{}',
	last_updated    INTEGER NOT NULL,
	PRIMARY KEY (path_id, keyword)
);
`

// SQLite is a Store backed by a single-writer SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database. Call Migrate before first use.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Migrate creates missing tables and indexes.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, committing on success.
func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertNiches inserts or replaces taxonomy nodes.
func (s *SQLite) UpsertNiches(ctx context.Context, nodes []model.NicheTaxonomyNode) error {
	ordered := append([]model.NicheTaxonomyNode(nil), nodes...)
	sortNiches(ordered)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO niche_taxonomy (id, parent_id, label, path_id, depth, aliases)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				parent_id = excluded.parent_id,
				label = excluded.label,
				path_id = excluded.path_id,
				depth = excluded.depth,
				aliases = excluded.aliases
		`)
		if err != nil {
			return fmt.Errorf("prepare niche upsert: %w", err)
		}
		defer stmt.Close()

		for _, n := range ordered {
			aliases := n.Aliases
			if aliases == nil {
				aliases = []string{}
			}
			encoded, err := json.Marshal(aliases)
			if err != nil {
				return fmt.Errorf("marshal aliases for %s: %w", n.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, n.ID, n.ParentID, n.Label, n.PathID, n.Depth, string(encoded)); err != nil {
				return fmt.Errorf("upsert niche %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

// ListNiches returns all nodes of a path.
func (s *SQLite) ListNiches(ctx context.Context, pathID string) ([]model.NicheTaxonomyNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, label, path_id, depth, aliases
		FROM niche_taxonomy
		WHERE path_id = ?
		ORDER BY depth, id
	`, pathID)
	if err != nil {
		return nil, fmt.Errorf("query niches: %w", err)
	}
	defer rows.Close()

	var result []model.NicheTaxonomyNode
	for rows.Next() {
		var (
			n       model.NicheTaxonomyNode
			aliases string
		)
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Label, &n.PathID, &n.Depth, &aliases); err != nil {
			return nil, fmt.Errorf("scan niche: %w", err)
		}
		if err := json.Unmarshal([]byte(aliases), &n.Aliases); err != nil {
			return nil, fmt.Errorf("unmarshal aliases for %s: %w", n.ID, err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// UpsertDataPoints writes points by natural key in one transaction.
func (s *SQLite) UpsertDataPoints(ctx context.Context, points []model.TrendDataPoint) error {
	if len(points) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO trend_data_points (
				niche_id, keyword, platform, date,
				search_volume, growth_rate_7d, growth_rate_30d, growth_rate_90d,
				cpc, affiliate_density, ads_density, content_density, creator_density,
				engagement_velocity, source, confidence, fetched_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(niche_id, keyword, platform, date) DO UPDATE SET
				search_volume = excluded.search_volume,
				growth_rate_7d = excluded.growth_rate_7d,
				growth_rate_30d = excluded.growth_rate_30d,
				growth_rate_90d = excluded.growth_rate_90d,
				cpc = excluded.cpc,
				affiliate_density = excluded.affiliate_density,
				ads_density = excluded.ads_density,
				content_density = excluded.content_density,
				creator_density = excluded.creator_density,
				engagement_velocity = excluded.engagement_velocity,
				source = excluded.source,
				confidence = excluded.confidence,
				fetched_at = excluded.fetched_at
		`)
		if err != nil {
			return fmt.Errorf("prepare data point upsert: %w", err)
		}
		defer stmt.Close()

		for _, dp := range points {
			if _, err := stmt.ExecContext(ctx,
				dp.NicheID, dp.Keyword, dp.Platform, model.Day(dp.Date).Format(sqliteDateLayout),
				dp.SearchVolume, dp.GrowthRate7d, dp.GrowthRate30d, dp.GrowthRate90d,
				dp.CPC, dp.AffiliateDensity, dp.AdsDensity, dp.ContentDensity, dp.CreatorDensity,
				dp.EngagementVelocity, dp.Source, dp.Confidence, dp.FetchedAt.UnixMicro(),
			); err != nil {
				return fmt.Errorf("upsert data point %s/%s: %w", dp.Keyword, dp.Platform, err)
			}
		}
		return nil
	})
}

// ListDataPoints returns points of a niche dated on or after since.
func (s *SQLite) ListDataPoints(ctx context.Context, nicheID string, since time.Time) ([]model.TrendDataPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT niche_id, keyword, platform, date,
			search_volume, growth_rate_7d, growth_rate_30d, growth_rate_90d,
			cpc, affiliate_density, ads_density, content_density, creator_density,
			engagement_velocity, source, confidence, fetched_at
		FROM trend_data_points
		WHERE niche_id = ? AND date >= ?
		ORDER BY date, keyword, platform
	`, nicheID, model.Day(since).Format(sqliteDateLayout))
	if err != nil {
		return nil, fmt.Errorf("query data points: %w", err)
	}
	defer rows.Close()

	var result []model.TrendDataPoint
	for rows.Next() {
		var (
			dp        model.TrendDataPoint
			date      string
			fetchedAt int64
		)
		if err := rows.Scan(
			&dp.NicheID, &dp.Keyword, &dp.Platform, &date,
			&dp.SearchVolume, &dp.GrowthRate7d, &dp.GrowthRate30d, &dp.GrowthRate90d,
			&dp.CPC, &dp.AffiliateDensity, &dp.AdsDensity, &dp.ContentDensity, &dp.CreatorDensity,
			&dp.EngagementVelocity, &dp.Source, &dp.Confidence, &fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan data point: %w", err)
		}
		if dp.Date, err = time.Parse(sqliteDateLayout, date); err != nil {
			return nil, fmt.Errorf("parse data point date %q: %w", date, err)
		}
		dp.FetchedAt = time.UnixMicro(fetchedAt).UTC()
		result = append(result, dp)
	}
	return result, rows.Err()
}

// DeleteDataPointsBefore removes points dated before cutoff.
func (s *SQLite) DeleteDataPointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trend_data_points WHERE date < ?`,
		model.Day(cutoff).Format(sqliteDateLayout))
	if err != nil {
		return 0, fmt.Errorf("delete data points: %w", err)
	}
	return res.RowsAffected()
}

// DataPointStats summarizes all stored points.
func (s *SQLite) DataPointStats(ctx context.Context) (model.DataPointStats, error) {
	var (
		stats model.DataPointStats
		last  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT keyword), MAX(fetched_at)
		FROM trend_data_points
	`).Scan(&stats.Count, &stats.Keywords, &last)
	if err != nil {
		return stats, fmt.Errorf("query data point stats: %w", err)
	}
	if last.Valid {
		stats.LastFetched = time.UnixMicro(last.Int64).UTC()
	}
	return stats, nil
}

// ReplaceScores atomically swaps all scores of a niche.
func (s *SQLite) ReplaceScores(ctx context.Context, pathID, nicheID string, scores []model.TrendScore) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM trend_scores WHERE niche_id = ?`, nicheID); err != nil {
			return fmt.Errorf("delete scores: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO trend_scores (
				niche_id, keyword, path_id, score,
				momentum, monetization, supply_gap, competition,
				lifecycle, lifecycle_default, risk, data_source, search_volume, growth_rate_7d,
				confidence, data_points, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare score insert: %w", err)
		}
		defer stmt.Close()

		for _, sc := range scores {
			if _, err := stmt.ExecContext(ctx,
				nicheID, sc.Keyword, pathID, sc.Score,
				sc.Subscores.Momentum, sc.Subscores.Monetization, sc.Subscores.SupplyGap, sc.Subscores.Competition,
				string(sc.Lifecycle), sc.LifecycleDefault, string(sc.Risk), string(sc.DataSource), sc.SearchVolume, sc.GrowthRate7d,
				sc.Confidence, sc.DataPoints, sc.LastUpdated.UnixMicro(),
			); err != nil {
				return fmt.Errorf("insert score %q: %w", sc.Keyword, err)
			}
		}
		return nil
	})
}

// ListScores returns scores of a path, optionally limited to one niche.
func (s *SQLite) ListScores(ctx context.Context, pathID, nicheID string) ([]model.TrendScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT niche_id, keyword, path_id, score,
			momentum, monetization, supply_gap, competition,
			lifecycle, lifecycle_default, risk, data_source, search_volume, growth_rate_7d,
			confidence, data_points, last_updated
		FROM trend_scores
		WHERE path_id = ? AND (? = '' OR niche_id = ?)
		ORDER BY score DESC, keyword, niche_id
	`, pathID, nicheID, nicheID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var result []model.TrendScore
	for rows.Next() {
		var (
			sc                          model.TrendScore
			lifecycle, risk, dataSource string
			lastUpdated                 int64
		)
		if err := rows.Scan(
			&sc.NicheID, &sc.Keyword, &sc.PathID, &sc.Score,
			&sc.Subscores.Momentum, &sc.Subscores.Monetization, &sc.Subscores.SupplyGap, &sc.Subscores.Competition,
			&lifecycle, &sc.LifecycleDefault, &risk, &dataSource, &sc.SearchVolume, &sc.GrowthRate7d,
			&sc.Confidence, &sc.DataPoints, &lastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		sc.Lifecycle = model.Lifecycle(lifecycle)
		sc.Risk = model.Risk(risk)
		sc.DataSource = model.DataSource(dataSource)
		sc.LastUpdated = time.UnixMicro(lastUpdated).UTC()
		result = append(result, sc)
	}
	return result, rows.Err()
}

// UpsertSignals writes signals by (path_id, keyword), keeping existing IDs.
func (s *SQLite) UpsertSignals(ctx context.Context, signals []model.MarketSignal) ([]model.MarketSignal, error) {
	stored := make([]model.MarketSignal, len(signals))
	copy(stored, signals)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO market_signals (
				path_id, keyword, id, trend_score, trend_direction, source,
				confidence, is_hot, suggestion, metadata, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path_id, keyword) DO UPDATE SET
				trend_score = excluded.trend_score,
				trend_direction = excluded.trend_direction,
				source = excluded.source,
				confidence = excluded.confidence,
				is_hot = excluded.is_hot,
				suggestion = excluded.suggestion,
				metadata = excluded.metadata,
				last_updated = excluded.last_updated
			RETURNING id
		`)
		if err != nil {
			return fmt.Errorf("prepare signal upsert: %w", err)
		}
		defer stmt.Close()

		for i := range stored {
			sig := &stored[i]
			if sig.ID == uuid.Nil {
				sig.ID = uuid.New()
			}
			meta, err := json.Marshal(sig.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for %q: %w", sig.Keyword, err)
			}

			var id string
			if err := stmt.QueryRowContext(ctx,
				sig.PathID, sig.Keyword, sig.ID.String(), sig.TrendScore, string(sig.TrendDirection), sig.Source,
				sig.Confidence, sig.IsHot, sig.Suggestion, string(meta), sig.LastUpdated.UnixMicro(),
			).Scan(&id); err != nil {
				return fmt.Errorf("upsert signal %q: %w", sig.Keyword, err)
			}
			if sig.ID, err = uuid.Parse(id); err != nil {
				return fmt.Errorf("parse signal id: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ListSignals returns all signals of a path.
func (s *SQLite) ListSignals(ctx context.Context, pathID string) ([]model.MarketSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path_id, keyword, trend_score, trend_direction, source,
			confidence, is_hot, suggestion, metadata, last_updated
		FROM market_signals
		WHERE path_id = ?
		ORDER BY trend_score DESC, keyword
	`, pathID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var result []model.MarketSignal
	for rows.Next() {
		var (
			sig           model.MarketSignal
			id, dir, meta string
			lastUpdated   int64
		)
		if err := rows.Scan(
			&id, &sig.PathID, &sig.Keyword, &sig.TrendScore, &dir, &sig.Source,
			&sig.Confidence, &sig.IsHot, &sig.Suggestion, &meta, &lastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if sig.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse signal id: %w", err)
		}
		sig.TrendDirection = model.Direction(dir)
		sig.LastUpdated = time.UnixMicro(lastUpdated).UTC()
		if err := json.Unmarshal([]byte(meta), &sig.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal signal metadata: %w", err)
		}
		result = append(result, sig)
	}
	return result, rows.Err()
}

// ListSignalPaths returns every path that has at least one signal.
func (s *SQLite) ListSignalPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT path_id FROM market_signals ORDER BY path_id`)
	if err != nil {
		return nil, fmt.Errorf("query signal paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan signal path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteSignals removes the given keywords of one path in one transaction.
func (s *SQLite) DeleteSignals(ctx context.Context, pathID string, keywords []string) (int64, error) {
	if len(keywords) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keywords)), ",")
	args := make([]any, 0, len(keywords)+1)
	args = append(args, pathID)
	for _, kw := range keywords {
		args = append(args, kw)
	}

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM market_signals WHERE path_id = ? AND keyword IN (`+placeholders+`)`, args...)
		if err != nil {
			return fmt.Errorf("delete signals: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
