package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/fortuna/nbaduck/internal/logging"
	"github.com/fortuna/nbaduck/internal/record"
)

// insertBatchRows caps the rows per INSERT statement.
const insertBatchRows = 500

// Result is the outcome of a statement: its columns and rows in order.
type Result struct {
	Columns []string
	Rows    []record.Record
}

// Truncate empties a table. Errors, including a missing table, are logged
// and never returned.
func (db *Database) Truncate(ctx context.Context, table string) {
	if _, err := db.conn.ExecContext(ctx, truncateStatement(table)); err != nil {
		db.logger.WithError(err).WithField(logging.FieldTable, table).Warn("truncate failed")
	}
}

// CreateTable creates table with schema. With replace an existing table is
// dropped first; without it an existing table is left untouched. The
// generated DDL is returned.
func (db *Database) CreateTable(ctx context.Context, table string, schema Schema, replace bool) (string, error) {
	if len(schema) == 0 {
		return "", fmt.Errorf("create %s: %w", table, ErrNoRows)
	}
	stmts := createTableStatements(db.dialect, table, schema, replace)
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("create %s: %w", table, err)
		}
	}
	return strings.Join(stmts, ";\n"), nil
}

// CreateTableAs replaces table with the result of query.
func (db *Database) CreateTableAs(ctx context.Context, table, query string) error {
	for _, stmt := range createTableAsStatements(db.dialect, table, query) {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	return nil
}

// Ingest loads rows into table: bare scalars are wrapped into {"year": v},
// nested values become JSON text, a schema is inferred, the table is created
// (or replaced) and every row appended. The DDL is logged and a preview of
// the table written.
func (db *Database) Ingest(ctx context.Context, table string, rows []any, replace bool) error {
	log := db.logger.WithField(logging.FieldTable, table)

	normalized, err := NormalizeRows(rows)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", table, err)
	}
	schema, err := InferSchema(normalized)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", table, err)
	}

	ddl, err := db.CreateTable(ctx, table, schema, replace)
	if err != nil {
		return err
	}
	log.Info(ddl)

	if !replace {
		if err := db.checkColumns(ctx, table, schema); err != nil {
			return err
		}
	}

	if err := db.insert(ctx, table, schema, normalized); err != nil {
		return err
	}
	log.WithField(logging.FieldRows, len(normalized)).Info("ingested")

	return db.previewTable(ctx, table)
}

func (db *Database) insert(ctx context.Context, table string, schema Schema, rows []record.Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	defer tx.Rollback()

	columns := schema.Names()
	for start := 0; start < len(rows); start += insertBatchRows {
		end := min(start+insertBatchRows, len(rows))
		batch := rows[start:end]

		args := make([]any, 0, len(batch)*len(schema))
		for i, row := range batch {
			for _, col := range schema {
				v, _ := row.Get(col.Name)
				bound, err := bindValue(col.Type, v)
				if err != nil {
					return fmt.Errorf("insert %s: row %d column %s: %w", table, start+i, col.Name, err)
				}
				args = append(args, bound)
			}
		}

		stmt := insertStatement(db.dialect, table, columns, len(batch))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// checkColumns fails when an existing table's column set differs from schema.
func (db *Database) checkColumns(ctx context.Context, table string, schema Schema) error {
	res, err := db.Exec(ctx, emptySelectStatement(table))
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}

	existing := slices.Clone(res.Columns)
	incoming := schema.Names()
	a, b := slices.Clone(existing), slices.Clone(incoming)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return &SchemaMismatchError{Table: table, Existing: existing, Incoming: incoming}
	}
	return nil
}

// Query returns every row of table in storage order and writes a preview.
func (db *Database) Query(ctx context.Context, table string) ([]record.Record, error) {
	res, err := db.Exec(ctx, selectAllStatement(table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	db.writePreview(table, res)
	return res.Rows, nil
}

// QueryLimit returns at most limit rows of table.
func (db *Database) QueryLimit(ctx context.Context, table string, limit int) (*Result, error) {
	return db.Exec(ctx, fmt.Sprintf("%s LIMIT %d", selectAllStatement(table), limit))
}

// Exec runs arbitrary SQL and collects whatever rows it yields.
func (db *Database) Exec(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Tables lists the user tables of the store.
func (db *Database) Tables(ctx context.Context) ([]string, error) {
	res, err := db.Exec(ctx, listTablesStatement(db.dialect), db.dialect.Schema())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, _ := row.Get("table_name")
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// HasTable reports whether table exists.
func (db *Database) HasTable(ctx context.Context, table string) (bool, error) {
	names, err := db.Tables(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, table), nil
}

func (db *Database) previewTable(ctx context.Context, table string) error {
	res, err := db.QueryLimit(ctx, table, db.previewRows)
	if err != nil {
		return fmt.Errorf("preview %s: %w", table, err)
	}
	db.writePreview(table, res)
	return nil
}

// WritePreview renders the first rows of res to the preview writer.
func (db *Database) WritePreview(title string, res *Result) {
	db.writePreview(title, res)
}

func (db *Database) writePreview(title string, res *Result) {
	if err := Preview(db.preview, title, res, db.previewRows); err != nil {
		db.logger.WithError(err).Warn("preview failed")
	}
}

func collect(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{Columns: columns, Rows: []record.Record{}}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		var rec record.Record
		for i, name := range columns {
			rec.Set(name, scanValue(values[i]))
		}
		res.Rows = append(res.Rows, rec)
	}
	return res, rows.Err()
}
