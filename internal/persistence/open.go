package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/config"
)

// Backend is an opened Store together with its lifecycle hooks.
type Backend struct {
	Driver string
	Store  Store

	ping  func(ctx context.Context) error
	close func()
}

// Ping reports whether the underlying database is reachable. The memory backend is always up.
func (b *Backend) Ping(ctx context.Context) error {
	if b == nil || b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the backend's resources.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// OpenStore opens the backend selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Backend{
			Driver: config.StoreDriverPostgres,
			Store:  NewPostgresStore(pg.Pool),
			ping:   pg.Ping,
			close:  pg.Close,
		}, nil

	case config.StoreDriverSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite store", zap.String("path", cfg.SQLite.Path))
		return &Backend{
			Driver: config.StoreDriverSQLite,
			Store:  store,
			ping:   store.Ping,
			close:  func() { _ = store.Close() },
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory ticket store; data is lost on exit")
		return &Backend{Driver: config.StoreDriverMemory, Store: NewMemoryStore()}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
