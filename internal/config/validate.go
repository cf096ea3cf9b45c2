package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required")
		}
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, postgres, sqlite, got %q", c.Store.Driver)
	}

	if err := c.Sources.Search.validate("sources.search"); err != nil {
		return err
	}
	if err := c.Sources.Video.validate("sources.video"); err != nil {
		return err
	}
	if err := c.Sources.Social.validate("sources.social"); err != nil {
		return err
	}
	if c.Sources.RSS.Enabled && len(c.Sources.RSS.Feeds) == 0 {
		return errors.New("sources.rss.feeds must not be empty when enabled")
	}
	if c.Sources.Fallback.Enabled && c.Sources.Fallback.Path == "" {
		return errors.New("sources.fallback.path is required when enabled")
	}

	if c.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be >= 1")
	}
	if c.Fetch.SourceTimeout > c.Fetch.StageTimeout {
		return fmt.Errorf("fetch.source_timeout (%s) cannot exceed fetch.stage_timeout (%s)", c.Fetch.SourceTimeout, c.Fetch.StageTimeout)
	}
	if c.Fetch.WindowDays < 1 {
		return errors.New("fetch.window_days must be >= 1")
	}

	if c.Pipeline.MinKeywords < 1 {
		return errors.New("pipeline.min_keywords must be >= 1")
	}
	if c.Pipeline.RetentionDays < 1 {
		return errors.New("pipeline.retention_days must be >= 1")
	}
	if c.Fetch.WindowDays > c.Pipeline.RetentionDays {
		return fmt.Errorf("fetch.window_days (%d) cannot exceed pipeline.retention_days (%d)", c.Fetch.WindowDays, c.Pipeline.RetentionDays)
	}
	if c.Pipeline.TopK < 1 {
		return errors.New("pipeline.top_k must be >= 1")
	}
	if c.Pipeline.HotThreshold < 0 || c.Pipeline.HotThreshold > 100 {
		return fmt.Errorf("pipeline.hot_threshold must be between 0 and 100, got %g", c.Pipeline.HotThreshold)
	}
	if c.Pipeline.ConcurrentPolicy != "join" && c.Pipeline.ConcurrentPolicy != "reject" {
		return fmt.Errorf("pipeline.concurrent_policy must be join or reject, got %q", c.Pipeline.ConcurrentPolicy)
	}
	if c.Pipeline.RefreshInterval < time.Minute {
		return fmt.Errorf("pipeline.refresh_interval must be >= 1m, got %s", c.Pipeline.RefreshInterval)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (s *HTTPSourceConfig) validate(prefix string) error {
	if !s.Enabled {
		return nil
	}
	if s.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required when enabled", prefix)
	}
	if s.Confidence <= 0 || s.Confidence > 1 {
		return fmt.Errorf("%s.confidence must be in (0, 1], got %g", prefix, s.Confidence)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("%s.max_retries must be >= 0", prefix)
	}
	return nil
}
