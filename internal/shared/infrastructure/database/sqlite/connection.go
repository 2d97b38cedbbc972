// Package sqlite backs database.Connection with the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/database"
)

func init() {
	database.Register(database.DriverSQLite, Open)
}

const pragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Connection wraps a single-writer *sql.DB.
type Connection struct {
	db *sql.DB
	database.SQLExecutor
}

// Open creates the database file if needed and verifies it responds.
func Open(ctx context.Context, cfg database.Config) (database.Connection, error) {
	path := strings.TrimPrefix(cfg.SQLitePath, "sqlite://")
	if path == "" {
		path = database.DefaultSQLitePath()
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := database.EnsureDirectory(path); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+pragmas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// One writer at a time; a single connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Connection{db: db, SQLExecutor: database.SQLExecutor{Backend: db}}, nil
}

// DB exposes the handle for migrations.
func (c *Connection) DB() *sql.DB { return c.db }

func (c *Connection) Driver() database.Driver       { return database.DriverSQLite }
func (c *Connection) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }
func (c *Connection) Close() error                   { return c.db.Close() }

func (c *Connection) BeginTx(ctx context.Context) (database.Transaction, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx, SQLExecutor: database.SQLExecutor{Backend: tx}}, nil
}

type transaction struct {
	tx *sql.Tx
	database.SQLExecutor
}

func (t *transaction) Commit(context.Context) error   { return t.tx.Commit() }
func (t *transaction) Rollback(context.Context) error { return t.tx.Rollback() }
