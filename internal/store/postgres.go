package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pathwise/trendintel/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS niche_taxonomy (
	id        TEXT PRIMARY KEY,
	parent_id TEXT REFERENCES niche_taxonomy(id),
	label     TEXT NOT NULL,
	path_id   TEXT NOT NULL,
	depth     INTEGER NOT NULL,
	aliases   TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_niche_taxonomy_path ON niche_taxonomy(path_id);

CREATE TABLE IF NOT EXISTS trend_data_points (
	niche_id            TEXT NOT NULL,
	keyword             TEXT NOT NULL,
	platform            TEXT NOT NULL,
	date                DATE NOT NULL,
	search_volume       DOUBLE PRECISION,
	growth_rate_7d      DOUBLE PRECISION,
	growth_rate_30d     DOUBLE PRECISION,
	growth_rate_90d     DOUBLE PRECISION,
	cpc                 DOUBLE PRECISION,
	affiliate_density   DOUBLE PRECISION,
	ads_density         DOUBLE PRECISION,
	content_density     DOUBLE PRECISION,
	creator_density     DOUBLE PRECISION,
	engagement_velocity DOUBLE PRECISION,
	source              TEXT NOT NULL,
	confidence          DOUBLE PRECISION NOT NULL,
	fetched_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (niche_id, keyword, platform, date)
);
CREATE INDEX IF NOT EXISTS idx_trend_data_points_date ON trend_data_points(date);

CREATE TABLE IF NOT EXISTS trend_scores (
	niche_id       TEXT NOT NULL,
	keyword        TEXT NOT NULL,
	path_id        TEXT NOT NULL,
	score          DOUBLE PRECISION NOT NULL,
	momentum       DOUBLE PRECISION NOT NULL,
	monetization   DOUBLE PRECISION NOT NULL,
	supply_gap     DOUBLE PRECISION NOT NULL,
	competition    DOUBLE PRECISION NOT NULL,
	lifecycle      TEXT NOT NULL,
	lifecycle_default BOOLEAN NOT NULL DEFAULT FALSE,
	risk           TEXT NOT NULL,
	data_source    TEXT NOT NULL,
	search_volume  DOUBLE PRECISION NOT NULL,
	growth_rate_7d DOUBLE PRECISION NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	data_points    INTEGER NOT NULL,
	last_updated   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (niche_id, keyword)
);
CREATE INDEX IF NOT EXISTS idx_trend_scores_path ON trend_scores(path_id);

CREATE TABLE IF NOT EXISTS market_signals (
	path_id         TEXT NOT NULL,
	keyword         TEXT NOT NULL,
	id              UUID NOT NULL UNIQUE,
	trend_score     DOUBLE PRECISION NOT NULL,
	trend_direction TEXT NOT NULL,
	source          TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	is_hot          BOOLEAN NOT NULL,
	suggestion      TEXT NOT NULL,
	metadata        JSONB NOT NULL DEFAULT '{}',
	last_updated    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (path_id, keyword)
);
`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Call Migrate before first use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates missing tables and indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	return nil
}

// UpsertNiches inserts or replaces taxonomy nodes. Parents are written before
// children so the parent_id reference always resolves.
func (p *Postgres) UpsertNiches(ctx context.Context, nodes []model.NicheTaxonomyNode) error {
	ordered := append([]model.NicheTaxonomyNode(nil), nodes...)
	sortNiches(ordered)

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, n := range ordered {
			aliases := n.Aliases
			if aliases == nil {
				aliases = []string{}
			}
			batch.Queue(`
				INSERT INTO niche_taxonomy (id, parent_id, label, path_id, depth, aliases)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET
					parent_id = EXCLUDED.parent_id,
					label = EXCLUDED.label,
					path_id = EXCLUDED.path_id,
					depth = EXCLUDED.depth,
					aliases = EXCLUDED.aliases
			`, n.ID, n.ParentID, n.Label, n.PathID, n.Depth, aliases)
		}
		return execBatch(ctx, tx, batch)
	})
}

// ListNiches returns all nodes of a path.
func (p *Postgres) ListNiches(ctx context.Context, pathID string) ([]model.NicheTaxonomyNode, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, parent_id, label, path_id, depth, aliases
		FROM niche_taxonomy
		WHERE path_id = $1
		ORDER BY depth, id
	`, pathID)
	if err != nil {
		return nil, fmt.Errorf("query niches: %w", err)
	}
	defer rows.Close()

	var result []model.NicheTaxonomyNode
	for rows.Next() {
		var n model.NicheTaxonomyNode
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Label, &n.PathID, &n.Depth, &n.Aliases); err != nil {
			return nil, fmt.Errorf("scan niche: %w", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// UpsertDataPoints writes points by natural key in one transaction.
func (p *Postgres) UpsertDataPoints(ctx context.Context, points []model.TrendDataPoint) error {
	if len(points) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, dp := range points {
			batch.Queue(`
				INSERT INTO trend_data_points (
					niche_id, keyword, platform, date,
					search_volume, growth_rate_7d, growth_rate_30d, growth_rate_90d,
					cpc, affiliate_density, ads_density, content_density, creator_density,
					engagement_velocity, source, confidence, fetched_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
				ON CONFLICT (niche_id, keyword, platform, date) DO UPDATE SET
					search_volume = EXCLUDED.search_volume,
					growth_rate_7d = EXCLUDED.growth_rate_7d,
					growth_rate_30d = EXCLUDED.growth_rate_30d,
					growth_rate_90d = EXCLUDED.growth_rate_90d,
					cpc = EXCLUDED.cpc,
					affiliate_density = EXCLUDED.affiliate_density,
					ads_density = EXCLUDED.ads_density,
					content_density = EXCLUDED.content_density,
					creator_density = EXCLUDED.creator_density,
					engagement_velocity = EXCLUDED.engagement_velocity,
					source = EXCLUDED.source,
					confidence = EXCLUDED.confidence,
					fetched_at = EXCLUDED.fetched_at
			`,
				dp.NicheID, dp.Keyword, dp.Platform, model.Day(dp.Date),
				dp.SearchVolume, dp.GrowthRate7d, dp.GrowthRate30d, dp.GrowthRate90d,
				dp.CPC, dp.AffiliateDensity, dp.AdsDensity, dp.ContentDensity, dp.CreatorDensity,
				dp.EngagementVelocity, dp.Source, dp.Confidence, dp.FetchedAt,
			)
		}
		return execBatch(ctx, tx, batch)
	})
}

// ListDataPoints returns points of a niche dated on or after since.
func (p *Postgres) ListDataPoints(ctx context.Context, nicheID string, since time.Time) ([]model.TrendDataPoint, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT niche_id, keyword, platform, date,
			search_volume, growth_rate_7d, growth_rate_30d, growth_rate_90d,
			cpc, affiliate_density, ads_density, content_density, creator_density,
			engagement_velocity, source, confidence, fetched_at
		FROM trend_data_points
		WHERE niche_id = $1 AND date >= $2
		ORDER BY date, keyword, platform
	`, nicheID, model.Day(since))
	if err != nil {
		return nil, fmt.Errorf("query data points: %w", err)
	}
	defer rows.Close()

	var result []model.TrendDataPoint
	for rows.Next() {
		var dp model.TrendDataPoint
		if err := rows.Scan(
			&dp.NicheID, &dp.Keyword, &dp.Platform, &dp.Date,
			&dp.SearchVolume, &dp.GrowthRate7d, &dp.GrowthRate30d, &dp.GrowthRate90d,
			&dp.CPC, &dp.AffiliateDensity, &dp.AdsDensity, &dp.ContentDensity, &dp.CreatorDensity,
			&dp.EngagementVelocity, &dp.Source, &dp.Confidence, &dp.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan data point: %w", err)
		}
		dp.Date = model.Day(dp.Date)
		result = append(result, dp)
	}
	return result, rows.Err()
}

// DeleteDataPointsBefore removes points dated before cutoff.
func (p *Postgres) DeleteDataPointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := p.pool.Exec(ctx, `DELETE FROM trend_data_points WHERE date < $1`, model.Day(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete data points: %w", err)
	}
	return ct.RowsAffected(), nil
}

// DataPointStats summarizes all stored points.
func (p *Postgres) DataPointStats(ctx context.Context) (model.DataPointStats, error) {
	var (
		stats model.DataPointStats
		last  *time.Time
	)
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT keyword), MAX(fetched_at)
		FROM trend_data_points
	`).Scan(&stats.Count, &stats.Keywords, &last)
	if err != nil {
		return stats, fmt.Errorf("query data point stats: %w", err)
	}
	if last != nil {
		stats.LastFetched = *last
	}
	return stats, nil
}

// ReplaceScores atomically swaps all scores of a niche.
func (p *Postgres) ReplaceScores(ctx context.Context, pathID, nicheID string, scores []model.TrendScore) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM trend_scores WHERE niche_id = $1`, nicheID); err != nil {
			return fmt.Errorf("delete scores: %w", err)
		}

		batch := &pgx.Batch{}
		for _, s := range scores {
			batch.Queue(`
				INSERT INTO trend_scores (
					niche_id, keyword, path_id, score,
					momentum, monetization, supply_gap, competition,
					lifecycle, lifecycle_default, risk, data_source, search_volume, growth_rate_7d,
					confidence, data_points, last_updated
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			`,
				nicheID, s.Keyword, pathID, s.Score,
				s.Subscores.Momentum, s.Subscores.Monetization, s.Subscores.SupplyGap, s.Subscores.Competition,
				string(s.Lifecycle), s.LifecycleDefault, string(s.Risk), string(s.DataSource), s.SearchVolume, s.GrowthRate7d,
				s.Confidence, s.DataPoints, s.LastUpdated,
			)
		}
		return execBatch(ctx, tx, batch)
	})
}

// ListScores returns scores of a path, optionally limited to one niche.
func (p *Postgres) ListScores(ctx context.Context, pathID, nicheID string) ([]model.TrendScore, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT niche_id, keyword, path_id, score,
			momentum, monetization, supply_gap, competition,
			lifecycle, lifecycle_default, risk, data_source, search_volume, growth_rate_7d,
			confidence, data_points, last_updated
		FROM trend_scores
		WHERE path_id = $1 AND ($2::text = '' OR niche_id = $2)
		ORDER BY score DESC, keyword, niche_id
	`, pathID, nicheID)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var result []model.TrendScore
	for rows.Next() {
		var (
			s                           model.TrendScore
			lifecycle, risk, dataSource string
		)
		if err := rows.Scan(
			&s.NicheID, &s.Keyword, &s.PathID, &s.Score,
			&s.Subscores.Momentum, &s.Subscores.Monetization, &s.Subscores.SupplyGap, &s.Subscores.Competition,
			&lifecycle, &s.LifecycleDefault, &risk, &dataSource, &s.SearchVolume, &s.GrowthRate7d,
			&s.Confidence, &s.DataPoints, &s.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		s.Lifecycle = model.Lifecycle(lifecycle)
		s.Risk = model.Risk(risk)
		s.DataSource = model.DataSource(dataSource)
		result = append(result, s)
	}
	return result, rows.Err()
}

// UpsertSignals writes signals by (path_id, keyword). The ID of an existing
// row is kept and returned.
func (p *Postgres) UpsertSignals(ctx context.Context, signals []model.MarketSignal) ([]model.MarketSignal, error) {
	stored := make([]model.MarketSignal, len(signals))
	copy(stored, signals)

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range stored {
			if s.ID == uuid.Nil {
				s.ID = uuid.New()
			}
			meta, err := json.Marshal(s.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for %q: %w", s.Keyword, err)
			}
			batch.Queue(`
				INSERT INTO market_signals (
					path_id, keyword, id, trend_score, trend_direction, source,
					confidence, is_hot, suggestion, metadata, last_updated
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (path_id, keyword) DO UPDATE SET
					trend_score = EXCLUDED.trend_score,
					trend_direction = EXCLUDED.trend_direction,
					source = EXCLUDED.source,
					confidence = EXCLUDED.confidence,
					is_hot = EXCLUDED.is_hot,
					suggestion = EXCLUDED.suggestion,
					metadata = EXCLUDED.metadata,
					last_updated = EXCLUDED.last_updated
				RETURNING id::text
			`,
				s.PathID, s.Keyword, s.ID.String(), s.TrendScore, string(s.TrendDirection), s.Source,
				s.Confidence, s.IsHot, s.Suggestion, meta, s.LastUpdated,
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for i := range stored {
			var id string
			if err := results.QueryRow().Scan(&id); err != nil {
				return fmt.Errorf("upsert signal %q: %w", stored[i].Keyword, err)
			}
			parsed, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("parse signal id: %w", err)
			}
			stored[i].ID = parsed
		}
		return results.Close()
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ListSignals returns all signals of a path.
func (p *Postgres) ListSignals(ctx context.Context, pathID string) ([]model.MarketSignal, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, path_id, keyword, trend_score, trend_direction, source,
			confidence, is_hot, suggestion, metadata, last_updated
		FROM market_signals
		WHERE path_id = $1
		ORDER BY trend_score DESC, keyword
	`, pathID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var result []model.MarketSignal
	for rows.Next() {
		var (
			s         model.MarketSignal
			id, dir   string
			metaBytes []byte
		)
		if err := rows.Scan(
			&id, &s.PathID, &s.Keyword, &s.TrendScore, &dir, &s.Source,
			&s.Confidence, &s.IsHot, &s.Suggestion, &metaBytes, &s.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse signal id: %w", err)
		}
		s.TrendDirection = model.Direction(dir)
		if len(metaBytes) > 0 {
			if err := json.Unmarshal(metaBytes, &s.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal signal metadata: %w", err)
			}
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// ListSignalPaths returns every path that has at least one signal.
func (p *Postgres) ListSignalPaths(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT path_id FROM market_signals ORDER BY path_id`)
	if err != nil {
		return nil, fmt.Errorf("query signal paths: %w", err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect signal paths: %w", err)
	}
	return paths, nil
}

// DeleteSignals removes the given keywords of one path in one statement.
func (p *Postgres) DeleteSignals(ctx context.Context, pathID string, keywords []string) (int64, error) {
	if len(keywords) == 0 {
		return 0, nil
	}
	ct, err := p.pool.Exec(ctx, `
		DELETE FROM market_signals WHERE path_id = $1 AND keyword = ANY($2)
	`, pathID, keywords)
	if err != nil {
		return 0, fmt.Errorf("delete signals: %w", err)
	}
	return ct.RowsAffected(), nil
}

// Ping verifies the pool is healthy.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// execBatch sends a batch inside tx and checks every result.
func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return results.Close()
}
