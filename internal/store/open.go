package store

import (
	"context"
	"fmt"

	"github.com/pathwise/trendintel/internal/config"
	"github.com/pathwise/trendintel/internal/database"
)

// Open connects the backend named by cfg.Driver and migrates its schema.
func Open(ctx context.Context, cfg config.StoreConfig, db config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil

	case "postgres":
		pool, err := database.Connect(ctx, db.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := NewPostgres(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil

	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = config.DefaultSQLitePath()
		}
		sqlDB, err := database.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		s := NewSQLite(sqlDB)
		if err := s.Migrate(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
