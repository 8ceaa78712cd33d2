package pipeline

import (
	"context"

	"github.com/fortuna/nbaduck/internal/record"
	"github.com/fortuna/nbaduck/internal/store"
)

// Step names a stage of a run.
type Step string

const (
	StepSeasons    Step = "ingest_seasons"
	StepGames      Step = "ingest_games"
	StepTeams      Step = "ingest_teams"
	StepLoad       Step = "load_tables"
	StepBuildTeams Step = "build_teams"
	StepBuildGames Step = "build_games"
	StepQueries    Step = "run_queries"
)

// Base table names.
const (
	SeasonsTable = "seasons"
	GamesTable   = "games"
	TeamsTable   = "teams"
)

// Options selects what a run does.
type Options struct {
	// Ingest fetches everything from the API before building the reports.
	Ingest bool
	// QueriesPath is the SQL script run last. Empty skips it.
	QueriesPath string
}

// Fetcher is the remote data source.
type Fetcher interface {
	FetchSeasons(ctx context.Context) ([]int, error)
	FetchTeams(ctx context.Context) ([]record.Record, error)
	FetchGames(ctx context.Context, season int) ([]record.Record, error)
}

// Store is the table store a run reads and writes.
type Store interface {
	Truncate(ctx context.Context, table string)
	Ingest(ctx context.Context, table string, rows []any, replace bool) error
	Query(ctx context.Context, table string) ([]record.Record, error)
	CreateTableAs(ctx context.Context, table, query string) error
	Exec(ctx context.Context, query string, args ...any) (*store.Result, error)
	WritePreview(title string, res *store.Result)
}

// Reporter receives lifecycle callbacks from the runner.
type Reporter interface {
	OnStepStart(step Step)
	OnSeason(season int, index int, total int, games int)
	OnStepComplete(step Step, rows int)
	OnError(step Step, err error)
}
