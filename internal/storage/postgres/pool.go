package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/notihub/gateway/internal/config"
)

// NewPool creates a pgxpool.Pool configured from cfg.Postgres, applying the
// pool-sizing settings the rest of the application never touches directly.
func NewPool(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	if cfg.Postgres.Pool.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.Pool.MaxOpenConns
	}
	if cfg.Postgres.Pool.MaxIdleConns > 0 {
		poolCfg.MinConns = cfg.Postgres.Pool.MaxIdleConns
	}
	if cfg.Postgres.Pool.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Postgres.Pool.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	return pool, nil
}
