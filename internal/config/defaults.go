package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultStoreDriver       = "memory"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultSourceTimeout     = 15 * time.Second
	DefaultSourceRetries     = 2
	DefaultSourceConfidence  = 0.8
	DefaultRSSConfidence     = 0.5
	DefaultFetchConcurrency  = 8
	DefaultFetchStageTimeout = 45 * time.Second
	DefaultWindowDays        = 30
	DefaultMinKeywords       = 3
	DefaultStalenessWindow   = 24 * time.Hour
	DefaultRetentionDays     = 30
	DefaultTopK              = 10
	DefaultHotThreshold      = 50.0
	DefaultConcurrentPolicy  = "join"
	DefaultRefreshInterval   = time.Hour
	DefaultServerPort        = 8080
)

func (c *Config) applyDefaults() {
	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		c.Store.SQLitePath = DefaultSQLitePath()
	}
	applyDBDefaults(&c.Database.Postgres)

	// Source defaults
	applyHTTPSourceDefaults(&c.Sources.Search)
	applyHTTPSourceDefaults(&c.Sources.Video)
	applyHTTPSourceDefaults(&c.Sources.Social)
	if c.Sources.RSS.Confidence == 0 {
		c.Sources.RSS.Confidence = DefaultRSSConfidence
	}

	// Fetch defaults
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = DefaultFetchConcurrency
	}
	if c.Fetch.SourceTimeout == 0 {
		c.Fetch.SourceTimeout = DefaultSourceTimeout
	}
	if c.Fetch.StageTimeout == 0 {
		c.Fetch.StageTimeout = DefaultFetchStageTimeout
	}
	if c.Fetch.WindowDays == 0 {
		c.Fetch.WindowDays = DefaultWindowDays
	}

	// Pipeline defaults
	if c.Pipeline.MinKeywords == 0 {
		c.Pipeline.MinKeywords = DefaultMinKeywords
	}
	if c.Pipeline.StalenessWindow == 0 {
		c.Pipeline.StalenessWindow = DefaultStalenessWindow
	}
	if c.Pipeline.RetentionDays == 0 {
		c.Pipeline.RetentionDays = DefaultRetentionDays
	}
	if c.Pipeline.TopK == 0 {
		c.Pipeline.TopK = DefaultTopK
	}
	if c.Pipeline.HotThreshold == 0 {
		c.Pipeline.HotThreshold = DefaultHotThreshold
	}
	if c.Pipeline.ConcurrentPolicy == "" {
		c.Pipeline.ConcurrentPolicy = DefaultConcurrentPolicy
	}
	if c.Pipeline.RefreshInterval == 0 {
		c.Pipeline.RefreshInterval = DefaultRefreshInterval
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyHTTPSourceDefaults(s *HTTPSourceConfig) {
	if s.Timeout == 0 {
		s.Timeout = DefaultSourceTimeout
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultSourceRetries
	}
	if s.Confidence == 0 {
		s.Confidence = DefaultSourceConfidence
	}
}
