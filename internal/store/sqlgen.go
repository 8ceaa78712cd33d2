package store

import (
	"fmt"
	"strings"
)

// All statement text is built here. Identifiers are interpolated quoted;
// values are always bound.

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// createTableStatements renders the DDL for a table. With replace the table
// is dropped and recreated, otherwise it is only created if absent.
func createTableStatements(d Dialect, table string, schema Schema, replace bool) []string {
	const newline, tab = "\n", "\t"

	defs := make([]string, len(schema))
	for i, col := range schema {
		defs[i] = tab + quoteIdent(col.Name) + " " + d.TypeName(col.Type)
	}
	body := " (" + newline + strings.Join(defs, ","+newline) + newline + ")"

	switch {
	case !replace:
		return []string{"CREATE TABLE IF NOT EXISTS " + quoteIdent(table) + body}
	case d.SupportsCreateOrReplace():
		return []string{"CREATE OR REPLACE TABLE " + quoteIdent(table) + body}
	default:
		return []string{
			"DROP TABLE IF EXISTS " + quoteIdent(table),
			"CREATE TABLE " + quoteIdent(table) + body,
		}
	}
}

// createTableAsStatements replaces table with the result of query.
func createTableAsStatements(d Dialect, table, query string) []string {
	if d.SupportsCreateOrReplace() {
		return []string{"CREATE OR REPLACE TABLE " + quoteIdent(table) + " AS " + query}
	}
	return []string{
		"DROP TABLE IF EXISTS " + quoteIdent(table),
		"CREATE TABLE " + quoteIdent(table) + " AS " + query,
	}
}

// insertStatement renders a multi-row INSERT for rows rows of columns.
func insertStatement(d Dialect, table string, columns []string, rows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(quoted, ", "))

	n := 1
	placeholders := make([]string, len(columns))
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		for c := range columns {
			placeholders[c] = d.Placeholder(n)
			n++
		}
		b.WriteString("(" + strings.Join(placeholders, ", ") + ")")
	}
	return b.String()
}

func selectAllStatement(table string) string {
	return "SELECT * FROM " + quoteIdent(table)
}

func emptySelectStatement(table string) string {
	return "SELECT * FROM " + quoteIdent(table) + " LIMIT 0"
}

func truncateStatement(table string) string {
	return "TRUNCATE " + quoteIdent(table)
}

func listTablesStatement(d Dialect) string {
	return "SELECT table_name FROM information_schema.tables WHERE table_schema = " +
		d.Placeholder(1) + " ORDER BY table_name"
}
