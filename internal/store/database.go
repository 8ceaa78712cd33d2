package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"                   // PostgreSQL driver
	_ "github.com/marcboeker/go-duckdb/v2" // DuckDB driver
	"github.com/sirupsen/logrus"

	"github.com/fortuna/nbaduck/internal/logging"
)

// DefaultPreviewRows bounds the table previews written after ingest/query.
const DefaultPreviewRows = 100

// Config selects and tunes the backend.
type Config struct {
	// Name is the DuckDB database name; the file is DataDir/Name.db.
	Name    string
	DataDir string
	// DSN, when it is a postgres:// URL, selects PostgreSQL instead.
	DSN string
	// Memory opens a private in-memory DuckDB database.
	Memory bool

	Logger      logrus.FieldLogger
	Preview     io.Writer
	PreviewRows int
}

// Database is the table store: one long-lived connection pool plus the
// dialect it speaks.
type Database struct {
	conn        *sql.DB
	dsn         string
	dialect     Dialect
	logger      logrus.FieldLogger
	preview     io.Writer
	previewRows int
}

// Open connects to the configured backend.
func Open(cfg Config) (*Database, error) {
	dialect, dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Name(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DuckDB {
		// Statements run strictly one after another.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	preview := cfg.Preview
	if preview == nil {
		preview = os.Stdout
	}
	previewRows := cfg.PreviewRows
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}

	return &Database{
		conn:        db,
		dsn:         dsn,
		dialect:     dialect,
		logger:      logger,
		preview:     preview,
		previewRows: previewRows,
	}, nil
}

func resolveDSN(cfg Config) (Dialect, string, error) {
	if cfg.DSN != "" {
		return DialectForDSN(cfg.DSN), cfg.DSN, nil
	}
	if cfg.Memory {
		return DuckDB, "", nil
	}

	name := cfg.Name
	if name == "" {
		name = "nba"
	}
	dir := cfg.DataDir
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create data dir: %w", err)
	}
	return DuckDB, filepath.Join(dir, name+".db"), nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for queries
func (db *Database) DB() *sql.DB {
	return db.conn
}

// Dialect returns the SQL dialect of the backend.
func (db *Database) Dialect() Dialect {
	return db.dialect
}

// HealthCheck performs a health check on the database
func (db *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.conn.PingContext(ctx)
}
