// Package database bootstraps the pgx connection pool the advisor
// runs against: pool-creation-with-timeout plus a Health(ctx) check,
// built directly on pgx/pgxpool rather than an ORM, since the cost
// oracle needs raw catalog SQL, EXPLAIN, and hypopg calls rather than
// an ORM session.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"indexadvisor/pkg/config"
	"indexadvisor/pkg/logging"
)

// Connect builds a pgxpool.Pool from the database section of Config,
// applying ConnectTimeout to the initial connection attempt.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger logging.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("database: connected",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Name))

	return pool, nil
}

// Health runs a lightweight round-trip against pool, bounded by a
// 5-second timeout.
func Health(ctx context.Context, pool *pgxpool.Pool) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(healthCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Stats mirrors the subset of pgxpool.Stat worth exposing for
// monitoring.
type Stats struct {
	AcquiredConns int32
	IdleConns     int32
	MaxConns      int32
}

func PoolStats(pool *pgxpool.Pool) Stats {
	s := pool.Stat()
	return Stats{
		AcquiredConns: s.AcquiredConns(),
		IdleConns:     s.IdleConns(),
		MaxConns:      s.MaxConns(),
	}
}
