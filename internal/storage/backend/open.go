// Package backend picks the single storage adapter a process runs against.
package backend

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/storage/postgres"
	"github.com/Togather-Foundation/conflicts/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Open connects the backend named in cfg. The choice is fixed for the life
// of the returned adapter.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (storage.Adapter, error) {
	kind, err := storage.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch kind {
	case storage.BackendPostgres:
		adapter, err := postgres.Open(ctx, postgres.Config{
			URL:            cfg.URL,
			MaxConnections: int32(cfg.MaxConnections),
			MinConnections: int32(cfg.MinConnections),
			AcquireTimeout: cfg.AcquireTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		stats := adapter.Stats()
		logger.Info().
			Str("backend", string(kind)).
			Int64("max_connections", stats.MaxOpen).
			Dur("acquire_timeout", cfg.AcquireTimeout).
			Msg("database pool ready")
		return adapter, nil

	case storage.BackendSQLite:
		adapter, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		logger.Info().
			Str("backend", string(kind)).
			Str("path", cfg.SQLitePath).
			Msg("database file ready")
		return adapter, nil
	}
	return nil, fmt.Errorf("unsupported database backend %q", cfg.Backend)
}
