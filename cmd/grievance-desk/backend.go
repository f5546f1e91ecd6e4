package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-desk/internal/api/http/handlers"
	"github.com/spec-kit/grievance-desk/internal/config"
	"github.com/spec-kit/grievance-desk/internal/persistence"
	"github.com/spec-kit/grievance-desk/internal/repository"
)

// backend is the set of adapters selected by STORE_BACKEND.
type backend struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	checks  map[string]handlers.Pinger
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured adapter. When migrate is set the
// schema is created before the repositories are returned.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*backend, error) {
	b := &backend{checks: map[string]handlers.Pinger{}}

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pg.Close)
		if migrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.tickets = repository.NewTicketRepository(pg.PoolHandle())
		b.users = repository.NewUserRepository(pg.PoolHandle())
		b.checks["postgres"] = pg

	case config.StoreBackendSQLite:
		db, err := persistence.NewSQLite(cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		if migrate {
			if err := persistence.AutoMigrateSQLite(db.DB, logger); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.tickets = repository.NewSQLiteTicketRepository(db.DB)
		b.users = repository.NewSQLiteUserRepository(db.DB)
		b.checks["sqlite"] = db

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		b.tickets = repository.NewMemoryTicketRepository()
		b.users = repository.NewMemoryUserRepository()
	}

	return b, nil
}
