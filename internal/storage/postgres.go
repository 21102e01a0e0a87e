// Package storage provides database connections and repository implementations.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/habit-stake/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connectTimeout bounds initial pool creation and the startup ping.
const connectTimeout = 10 * time.Second

// PostgresDB wraps the pgxpool connection
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB opens a connection pool tuned from config and verifies
// the database is reachable before returning.
func NewPostgresDB(cfg *config.PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections) // #nosec G115 - MaxConnections is validated in config
	poolConfig.MinConns = int32(cfg.MinConnections) // #nosec G115 - MinConnections is validated in config
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool returns the underlying connection pool
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks if the database is reachable
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
