package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testSchema = Schema{
	{Name: "id", Type: Integer},
	{Name: "ratio", Type: Float},
	{Name: "active", Type: Boolean},
	{Name: "name", Type: String},
}

func TestCreateTableStatementsDuckDB(t *testing.T) {
	stmts := createTableStatements(DuckDB, "teams", testSchema, true)
	assert.Equal(t, []string{
		"CREATE OR REPLACE TABLE \"teams\" (\n\t\"id\" BIGINT,\n\t\"ratio\" DOUBLE,\n\t\"active\" BOOLEAN,\n\t\"name\" VARCHAR\n)",
	}, stmts)

	stmts = createTableStatements(DuckDB, "games", testSchema[:1], false)
	assert.Equal(t, []string{"CREATE TABLE IF NOT EXISTS \"games\" (\n\t\"id\" BIGINT\n)"}, stmts)
}

func TestCreateTableStatementsPostgres(t *testing.T) {
	stmts := createTableStatements(Postgres, "teams", testSchema, true)
	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS "teams"`,
		"CREATE TABLE \"teams\" (\n\t\"id\" BIGINT,\n\t\"ratio\" DOUBLE PRECISION,\n\t\"active\" BOOLEAN,\n\t\"name\" TEXT\n)",
	}, stmts)
}

func TestInsertStatementPlaceholders(t *testing.T) {
	cols := []string{"a", "b"}
	assert.Equal(t,
		`INSERT INTO "t" ("a", "b") VALUES (?, ?), (?, ?)`,
		insertStatement(DuckDB, "t", cols, 2))
	assert.Equal(t,
		`INSERT INTO "t" ("a", "b") VALUES ($1, $2), ($3, $4)`,
		insertStatement(Postgres, "t", cols, 2))
}

func TestQuoteIdentEscapes(t *testing.T) {
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}

func TestDialectForDSN(t *testing.T) {
	assert.Equal(t, Postgres, DialectForDSN("postgres://u:p@localhost/db"))
	assert.Equal(t, Postgres, DialectForDSN("postgresql://localhost/db"))
	assert.Equal(t, DuckDB, DialectForDSN("data/nba.db"))
}

func TestBindValue(t *testing.T) {
	v, err := bindValue(Float, int64(3))
	assert.NoError(t, err)
	assert.Equal(t, float64(3), v)

	v, err = bindValue(String, int64(3))
	assert.NoError(t, err)
	assert.Equal(t, "3", v)

	_, err = bindValue(Integer, "x")
	assert.Error(t, err)

	v, err = bindValue(Boolean, nil)
	assert.NoError(t, err)
	assert.Nil(t, v)
}
