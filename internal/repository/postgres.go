package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open creates a pgx pool for the ledger.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-scanner"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := pool.Ping(ctx); err != nil {
		return common.WrapError(errorsJoinDB(err), "ping")
	}
	logger.Debug("database ping successful")
	return nil
}

// PostgresSink is a shared ledger for multi-host deployments.
type PostgresSink struct {
	*Ledger
	pool *pgxpool.Pool
}

var _ export.Sink = (*PostgresSink)(nil)

// NewPostgresSink wraps pool as a *sql.DB for ent and creates the ledger table
// when missing.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	drv := entsql.OpenDB(dialect.Postgres, stdlib.OpenDBFromPool(pool))
	ledger, err := newLedger(ctx, drv, "repository.postgres", logger)
	if err != nil {
		return nil, err
	}
	return &PostgresSink{Ledger: ledger, pool: pool}, nil
}

// Close releases the pool and the ent driver on top of it.
func (s *PostgresSink) Close() {
	s.logger.Info("closing database connections")
	s.pool.Close()
	if err := s.drv.Close(); err != nil {
		s.logger.Error("failed to close ent driver", "error", err)
	}
	s.logger.Info("database connections closed")
}

// errorsJoinDB tags a driver error with common.ErrDatabase.
func errorsJoinDB(err error) error {
	return errors.Join(common.ErrDatabase, err)
}
