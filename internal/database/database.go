// Package database builds the PostgreSQL connection pool and applies schema
// migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"booking-engine/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool creates a new PostgreSQL connection pool.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	return NewPoolFromURL(ctx, cfg.ConnectionString(), cfg.MaxConnections, cfg.MinConnections,
		time.Duration(cfg.MaxConnLifetime)*time.Second, logger.With().Str("host", cfg.Host).Logger())
}

// NewPoolFromURL creates a pool from a connection string, for callers such as
// tests that are handed a ready URL.
func NewPoolFromURL(ctx context.Context, connStr string, maxConns, minConns int, lifetime time.Duration, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)
	poolConfig.MaxConnLifetime = lifetime
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	logger.Info().
		Str("database", poolConfig.ConnConfig.Database).
		Int("max_connections", maxConns).
		Int("min_connections", minConns).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}
