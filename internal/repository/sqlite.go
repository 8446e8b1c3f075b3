package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-scanner/internal/export"
)

// SQLiteSink is a single-file ledger for local runs.
type SQLiteSink struct {
	*Ledger
	db *sql.DB
}

var _ export.Sink = (*SQLiteSink)(nil)

// OpenSQLite opens (creating if needed) the ledger at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; WAL lets readers proceed
	db.SetMaxOpenConns(1)

	// the ent migrator refuses to run with foreign keys off
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	ledger, err := newLedger(ctx, entsql.OpenDB(dialect.SQLite, db), "repository.sqlite", logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("repository.sqlite.open", "path", path)
	return &SQLiteSink{Ledger: ledger, db: db}, nil
}

func (s *SQLiteSink) Close() error {
	return s.drv.Close()
}
