// Package script runs ;-separated SQL files against the derived tables.
package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/fortuna/nbaduck/internal/logging"
	"github.com/fortuna/nbaduck/internal/store"
)

// Queries written against the base tables read the derived ones instead.
var rewrites = strings.NewReplacer(
	"FROM games", "FROM games_standard_league",
	"FROM teams", "FROM nba_standard_league",
)

// Executor runs one statement and renders its result.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (*store.Result, error)
	WritePreview(title string, res *store.Result)
}

// StatementError reports the statement that stopped a script.
type StatementError struct {
	Index     int // 1-based position among the non-empty statements
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v\n%s", e.Index, e.Err, e.Statement)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// Runner executes SQL script files.
type Runner struct {
	fs     afero.Fs
	db     Executor
	logger logrus.FieldLogger
}

// NewRunner creates a runner reading scripts from fs. A nil fs reads the OS
// filesystem.
func NewRunner(fs afero.Fs, db Executor, logger logrus.FieldLogger) *Runner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{fs: fs, db: db, logger: logger}
}

// Rewrite points FROM games and FROM teams at the derived tables.
func Rewrite(sql string) string {
	return rewrites.Replace(sql)
}

// Split cuts sql on ';' and drops blank fragments.
func Split(sql string) []string {
	var stmts []string
	for _, part := range strings.Split(sql, ";") {
		if part = strings.TrimSpace(part); part != "" {
			stmts = append(stmts, part)
		}
	}
	return stmts
}

// RunFile reads path, rewrites and splits it, and runs each statement in
// order. The first failing statement stops the batch. It returns the number
// of statements executed.
func (r *Runner) RunFile(ctx context.Context, path string) (int, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return 0, fmt.Errorf("read script: %w", err)
	}
	return r.Run(ctx, string(data))
}

// Run executes the statements of sql after rewriting.
func (r *Runner) Run(ctx context.Context, sql string) (int, error) {
	stmts := Split(Rewrite(sql))
	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		r.logger.WithField(logging.FieldStatement, i+1).Info(stmt)

		res, err := r.db.Exec(ctx, stmt)
		if err != nil {
			return i, &StatementError{Index: i + 1, Statement: stmt, Err: err}
		}
		r.db.WritePreview(fmt.Sprintf("statement %d", i+1), res)
	}
	return len(stmts), nil
}
