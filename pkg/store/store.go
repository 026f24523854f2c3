// Package store owns the PostgreSQL connection pool and schema lifecycle
// for the platform. Higher layers reach the database either directly
// through the pool or through an ambient transaction (see txscope).
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/store/txscope"
)

// Store wraps the connection pool.
type Store struct {
	pool   *pgxpool.Pool
	config *Config
}

// New creates the connection pool, pings the database, and optionally runs
// pending migrations when cfg.AutoMigrate is set.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	if cfg.QueryTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] =
			fmt.Sprintf("%dms", cfg.QueryTimeout.Milliseconds())
	}

	logger.InfoCtx(ctx, "Creating PostgreSQL connection pool",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"max_conns", cfg.MaxConns,
		"ssl_mode", cfg.SSLMode,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, cfg.ConnectionString()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &Store{pool: pool, config: cfg}, nil
}

// Pool exposes the underlying pgx pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Querier returns the ambient transaction for ctx when one is open, and
// the pool otherwise.
func (s *Store) Querier(ctx context.Context) txscope.Querier {
	return txscope.QuerierFor(ctx, s.pool)
}

// RunInTx executes fn in a transaction scope (see txscope.Run).
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txscope.Run(ctx, s.pool, fn)
}

// Ping checks database liveness.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts the connection pool down.
func (s *Store) Close() {
	if s.pool != nil {
		logger.Info("Closing PostgreSQL connection pool")
		s.pool.Close()
	}
}
