// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the Go binary and stores
// everything in a single file. No separate server to run. The catalog is a
// single-node service, so this is all the storage it needs, and tests can use
// ":memory:" for a throwaway database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler is
// needed and cross-compilation just works.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      : a connection pool (NOT a single connection!)
//   - sql.Tx      : a transaction
//   - sql.Row     : a single result row
//   - sql.Rows    : multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the user, book and review
// repositories from internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens the database and applies every pending migration.
//
// dbPath examples:
//   - "data/catalog.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	m, err := db.Migrator()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := m.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Open opens the database without touching the schema. The migrate command
// uses it so "down" and "version" see the schema as it is.
//
// PRAGMAS IN THE DSN:
// PRAGMA statements only affect the connection that runs them, and sql.DB is
// a pool. Passing them as _pragma parameters makes the driver apply them to
// every connection it opens.
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a different, empty database.
	// Pin the pool to one connection so all queries see the same one.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{conn: conn}, nil
}

func dsn(dbPath string) string {
	// _time_format=sqlite stores timestamps as "YYYY-MM-DD HH:MM:SS.fff+00:00",
	// which sorts correctly as text and is readable by SQLite's date functions.
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if isMemory(dbPath) {
		return "file::memory:?" + pragmas
	}
	// WAL lets readers proceed while a write is in flight.
	return "file:" + dbPath + "?" + pragmas + "&_pragma=journal_mode(WAL)"
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
