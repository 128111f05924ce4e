// Package repository selects and opens the configured node store.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"notetree/internal/config"
	"notetree/internal/domain/repositories"
	"notetree/internal/repository/memory"
	"notetree/internal/repository/postgres"
	"notetree/internal/repository/sqlite"
)

// Open connects the store named by cfg.StoreDriver. The returned close func releases
// the underlying connection and is safe to call once.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.NodeRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite store opened", "path", cfg.SQLitePath)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close sqlite store", "error", err)
			}
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres store connected", "table", tables.Nodes)
		repo := postgres.NewNodeRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		})
		return repo, pool.Close, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, nothing will be persisted")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
