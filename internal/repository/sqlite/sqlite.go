// Package sqlite implements repository.Store using SQLite as the storage backend.
//
// SQLite is an embedded database: it lives inside the Go binary as a single file,
// with no separate server. modernc.org/sqlite is a pure Go translation of the SQLite
// C code, so no C compiler is needed.
//
// UNIQUENESS:
// The schema enforces every invariant the store contract promises:
//   - users.id is the PRIMARY KEY
//   - users.username is UNIQUE COLLATE NOCASE ("Alice" and "alice" collide)
//   - users.email is COLLATE NOCASE with a partial UNIQUE index WHERE email IS NOT NULL,
//     so any number of users may have no email (stored as NULL, never as "")
//   - sessions.token is the PRIMARY KEY
//
// A violated constraint comes back from the driver as SQLITE_CONSTRAINT_UNIQUE or
// SQLITE_CONSTRAINT_PRIMARYKEY and is translated into *repository.DuplicateKeyError.
//
// CONNECTION POOL:
// The pool is capped at a single connection. SQLite allows one writer at a time;
// with one connection concurrent writers queue inside database/sql instead of
// failing with SQLITE_BUSY, and ":memory:" databases stay a single database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sakif/healthchat/internal/model"
	"github.com/sakif/healthchat/internal/repository"
)

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/healthchat.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests; lost on close)
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	// "sqlite" is the driver name registered by modernc.org/sqlite's init.
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// sql.Open does not connect; Ping surfaces a bad path or permissions now.
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, repository.Unavailable("sqlite: pinging database", err)
	}

	// PRAGMA STATEMENTS:
	// WAL lets readers proceed while a write is in progress. busy_timeout makes a
	// second process sharing the file wait for the lock instead of failing at once.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, path: dbPath, logger: logger}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	logger.Info("sqlite store ready", slog.String("path", dbPath))
	return db, nil
}

func (db *DB) Name() string { return "sqlite" }

// Close closes the database connection pool.
func (db *DB) Close(ctx context.Context) error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run on
// every start.
func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email         TEXT COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			full_name     TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_logs (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			timestamp       DATETIME NOT NULL,
			user_input      TEXT NOT NULL,
			bot_response    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_logs_user_ts ON chat_logs(user_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_chat_logs_conversation_ts ON chat_logs(conversation_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("creating chat_logs table: %w", err)
	}

	return nil
}

// Status reports row counts per table and the database size.
func (db *DB) Status(ctx context.Context) (*model.StoreStatus, error) {
	st := &model.StoreStatus{
		Backend:  db.Name(),
		Database: db.path,
	}

	if err := db.conn.PingContext(ctx); err != nil {
		st.Message = fmt.Sprintf("sqlite unreachable: %v", err)
		return st, nil
	}

	counts := make(map[string]int64, len(model.Collections))
	for _, table := range model.Collections {
		var n int64
		// table names come from a fixed list, never from input
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, repository.Unavailable("sqlite: counting "+table, err)
		}
		counts[table] = n
	}

	var pageCount, pageSize int64
	if err := db.conn.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, repository.Unavailable("sqlite: reading page_count", err)
	}
	if err := db.conn.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, repository.Unavailable("sqlite: reading page_size", err)
	}

	st.Connected = true
	st.Collections = model.Collections
	st.DocumentCounts = counts
	st.SizeEstimate = fmt.Sprintf("%.2f MB", float64(pageCount*pageSize)/(1024*1024))
	st.Message = "using embedded SQLite storage"
	return st, nil
}

// duplicateKey translates a UNIQUE / PRIMARY KEY violation into *repository.DuplicateKeyError.
// ok is false for any other error.
//
// The driver reports the violated columns in the message, for example:
//
//	constraint failed: UNIQUE constraint failed: users.username (2067)
func duplicateKey(table string, err error) (dup error, ok bool) {
	var sqlErr *sqlitedrv.Error
	if !errors.As(err, &sqlErr) {
		return nil, false
	}
	code := sqlErr.Code()
	if code != sqlitelib.SQLITE_CONSTRAINT_UNIQUE && code != sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY {
		return nil, false
	}

	msg := sqlErr.Error()
	var field string
	switch {
	case strings.Contains(msg, "users.username"):
		field = repository.FieldUsername
	case strings.Contains(msg, "users.email"):
		field = repository.FieldEmail
	case strings.Contains(msg, "users.id"):
		field = repository.FieldUserID
	case strings.Contains(msg, "sessions.token"):
		field = repository.FieldToken
	default:
		field = "id"
	}
	return &repository.DuplicateKeyError{Collection: table, Field: field}, true
}
