package store

import (
	"fmt"
	"strings"
)

// Dialect covers the SQL differences between the supported backends.
type Dialect interface {
	// Name is the database/sql driver name.
	Name() string
	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder(n int) string
	// TypeName maps a logical column type onto the backend's type.
	TypeName(t ColumnType) string
	// SupportsCreateOrReplace reports whether CREATE OR REPLACE TABLE exists.
	SupportsCreateOrReplace() bool
	// Schema is the namespace user tables are created in.
	Schema() string
}

// DuckDB is the default, file-backed analytical backend.
var DuckDB Dialect = duckDialect{}

// Postgres is selected by a postgres:// DSN.
var Postgres Dialect = postgresDialect{}

type duckDialect struct{}

func (duckDialect) Name() string                  { return "duckdb" }
func (duckDialect) Placeholder(int) string        { return "?" }
func (duckDialect) SupportsCreateOrReplace() bool { return true }
func (duckDialect) Schema() string                { return "main" }

func (duckDialect) TypeName(t ColumnType) string {
	switch t {
	case Integer:
		return "BIGINT"
	case Float:
		return "DOUBLE"
	case Boolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string                  { return "postgres" }
func (postgresDialect) Placeholder(n int) string      { return fmt.Sprintf("$%d", n) }
func (postgresDialect) SupportsCreateOrReplace() bool { return false }
func (postgresDialect) Schema() string                { return "public" }

func (postgresDialect) TypeName(t ColumnType) string {
	switch t {
	case Integer:
		return "BIGINT"
	case Float:
		return "DOUBLE PRECISION"
	case Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// DialectForDSN picks the dialect a DSN belongs to.
func DialectForDSN(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Postgres
	}
	return DuckDB
}
