// Package sqlite implements store.Store on SQLite.
//
// The database is opened in WAL mode so that `pagecache history` can
// read while the monitor daemon writes. Every query is prepared once at
// open time. The monitor is the only writer and writes one row per
// tick, so there is no transaction management beyond autocommit.
//
// The default driver is the pure-Go modernc.org/sqlite. Building with
// the cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/frobware/go-pagecache/store"
)

//go:embed schema.sql
var schemaSQL string

type pragma struct {
	name, value string
}

// sqliteStore implements store.Store.
type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger

	stmtSaveSample       *sql.Stmt
	stmtGetSample        *sql.Stmt
	stmtListSamples      *sql.Stmt
	stmtListSamplesByRun *sql.Stmt
	stmtPruneSamples     *sql.Stmt
}

var _ store.Store = (*sqliteStore)(nil)

// New opens (creating if needed) the database at dbPath.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "db", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath, []pragma{
		{"journal_mode", "WAL"},
		{"busy_timeout", "5000"},
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := open(ctx, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("opened database")
	return s, nil
}

// NewInMemory returns a store backed by a private in-memory database.
func NewInMemory(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "db", ":memory:")

	db, err := sql.Open(driverName, dsn(":memory:", nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	s, err := open(ctx, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened in-memory database")
	return s, nil
}

func open(ctx context.Context, db *sql.DB, logger *slog.Logger) (*sqliteStore, error) {
	s := &sqliteStore{db: db, logger: logger}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.prepareStatements(ctx); err != nil {
		s.closeStatements()
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return s, nil
}

// Close closes the prepared statements and the database.
func (s *sqliteStore) Close() error {
	s.closeStatements()
	return s.db.Close()
}

func (s *sqliteStore) closeStatements() {
	for _, stmt := range []*sql.Stmt{
		s.stmtSaveSample,
		s.stmtGetSample,
		s.stmtListSamples,
		s.stmtListSamplesByRun,
		s.stmtPruneSamples,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// msec formats a duration as milliseconds with 3 decimal places.
func msec(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d.Microseconds())/1000)
}
