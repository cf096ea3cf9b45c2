package config

import "time"

// Config is the root configuration for a trendintel instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Sources  SourcesConfig  `yaml:"sources"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver     string `yaml:"driver"`      // memory, postgres, sqlite
	SQLitePath string `yaml:"sqlite_path"` // used when driver is sqlite
}

// DatabaseConfig holds the PostgreSQL connection used by the postgres driver.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SourcesConfig holds one block per source adapter. Every adapter is optional.
type SourcesConfig struct {
	Search   HTTPSourceConfig     `yaml:"search"`
	Video    HTTPSourceConfig     `yaml:"video"`
	Social   HTTPSourceConfig     `yaml:"social"`
	RSS      RSSSourceConfig      `yaml:"rss"`
	Fallback FallbackSourceConfig `yaml:"fallback"`
}

// HTTPSourceConfig configures a JSON trend API adapter.
type HTTPSourceConfig struct {
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Confidence float64       `yaml:"confidence"`
}

// RSSSourceConfig configures the trending-feed adapter.
type RSSSourceConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Feeds      []string `yaml:"feeds"`
	Confidence float64  `yaml:"confidence"`
}

// FallbackSourceConfig points at a YAML file of baseline estimates.
type FallbackSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// FetchConfig controls the fetch stage fan-out.
type FetchConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	SourceTimeout time.Duration `yaml:"source_timeout"`
	StageTimeout  time.Duration `yaml:"stage_timeout"`
	WindowDays    int           `yaml:"window_days"`
}

// PipelineConfig controls scoring, signals and retention.
type PipelineConfig struct {
	MinKeywords      int           `yaml:"min_keywords"`
	StalenessWindow  time.Duration `yaml:"staleness_window"`
	RetentionDays    int           `yaml:"retention_days"`
	TopK             int           `yaml:"top_k"`
	HotThreshold     float64       `yaml:"hot_threshold"`
	ConcurrentPolicy string        `yaml:"concurrent_policy"` // join or reject
	RefreshInterval  time.Duration `yaml:"refresh_interval"`  // background staleness check period
	RefreshPaths     []string      `yaml:"refresh_paths"`     // empty means every path with signals
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}
