package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"natours/api/internal/config"
	"natours/api/internal/repository"
	"natours/api/internal/repository/memory"
	"natours/api/internal/repository/mongodb"
	"natours/api/internal/repository/postgres"
)

// Open connects the configured backend and returns its repositories. The caller owns
// the returned store and must Close it.
func Open(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info().Msg("postgres migrations applied")
		}
		return &repository.Store{
			Users:  postgres.NewUserRepository(pool),
			Tours:  postgres.NewTourRepository(pool),
			Driver: config.DriverPostgres,
			Ping:   pool.Ping,
			Close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &repository.Store{
			Users:  mongodb.NewUserRepository(db),
			Tours:  mongodb.NewTourRepository(db),
			Driver: config.DriverMongo,
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			Close: client.Disconnect,
		}, nil

	case config.DriverMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

func NewMemoryStore() *repository.Store {
	noop := func(context.Context) error { return nil }
	return &repository.Store{
		Users:  memory.NewUserRepository(),
		Tours:  memory.NewTourRepository(),
		Driver: config.DriverMemory,
		Ping:   noop,
		Close:  noop,
	}
}
