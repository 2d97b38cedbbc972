package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Driver names a storage backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string { return string(d) }

// DetectDriver picks a backend from a connection string. An empty string
// selects SQLite so the server runs without any external database.
func DetectDriver(url string) Driver {
	switch {
	case url == "":
		return DriverSQLite
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"),
		strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"), strings.HasSuffix(url, ".sqlite3"):
		return DriverSQLite
	default:
		return DriverPostgres
	}
}

// Config selects and parameterizes a connection.
type Config struct {
	// Driver overrides detection when set.
	Driver Driver
	// URL is the Postgres DSN.
	URL string
	// SQLitePath defaults to ~/.tempo/data.db.
	SQLitePath string
	// MaxConns caps the Postgres pool.
	MaxConns int
}

// Opener builds a connection for one driver. Driver packages register
// theirs from init so this package stays free of driver imports.
type Opener func(ctx context.Context, cfg Config) (Connection, error)

var openers = map[Driver]Opener{}

// Register installs the opener for a driver.
func Register(driver Driver, open Opener) {
	openers[driver] = open
}

// Open connects using the registered opener for the configured driver.
func Open(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DetectDriver(cfg.URL)
	}
	open, ok := openers[driver]
	if !ok {
		return nil, fmt.Errorf("database driver %q is not registered", driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath is the zero-config database location.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".tempo", "data.db")
}

// EnsureDirectory creates the parent directory of path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
