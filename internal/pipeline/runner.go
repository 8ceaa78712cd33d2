// Package pipeline drives a full run: optional ingest from the API, the two
// derived tables, then the query script.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/fortuna/nbaduck/internal/logging"
	"github.com/fortuna/nbaduck/internal/script"
	"github.com/fortuna/nbaduck/internal/store"
	"github.com/fortuna/nbaduck/internal/transform"
)

// Runner executes runs against one store.
type Runner struct {
	fetcher Fetcher
	db      Store
	scripts *script.Runner
	logger  logrus.FieldLogger
}

// NewRunner wires a runner. fetcher may be nil when runs never ingest; fs is
// where query scripts are read from (nil means the OS filesystem).
func NewRunner(fetcher Fetcher, db Store, fs afero.Fs, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		fetcher: fetcher,
		db:      db,
		scripts: script.NewRunner(fs, db, logger),
		logger:  logger,
	}
}

// Run executes opts, reporting progress via reporter if provided. The first
// error stops the run.
func (r *Runner) Run(ctx context.Context, opts Options, reporter Reporter) error {
	if reporter == nil {
		reporter = nopReporter{}
	}

	if opts.Ingest {
		if r.fetcher == nil {
			return errors.New("ingest requested without an API client")
		}
		if err := r.ingest(ctx, reporter); err != nil {
			return err
		}
	}

	reporter.OnStepStart(StepLoad)
	if _, err := r.db.Query(ctx, SeasonsTable); err != nil {
		return fail(reporter, StepLoad, err)
	}
	if _, err := r.db.Query(ctx, GamesTable); err != nil {
		return fail(reporter, StepLoad, err)
	}
	teams, err := r.db.Query(ctx, TeamsTable)
	if err != nil {
		return fail(reporter, StepLoad, err)
	}
	reporter.OnStepComplete(StepLoad, len(teams))

	reporter.OnStepStart(StepBuildTeams)
	n, err := transform.BuildTeams(ctx, r.db, teams)
	if err != nil {
		return fail(reporter, StepBuildTeams, err)
	}
	reporter.OnStepComplete(StepBuildTeams, n)

	reporter.OnStepStart(StepBuildGames)
	if n, err = transform.BuildGames(ctx, r.db); err != nil {
		return fail(reporter, StepBuildGames, err)
	}
	reporter.OnStepComplete(StepBuildGames, n)

	if opts.QueriesPath == "" {
		return nil
	}
	reporter.OnStepStart(StepQueries)
	if n, err = r.scripts.RunFile(ctx, opts.QueriesPath); err != nil {
		return fail(reporter, StepQueries, err)
	}
	reporter.OnStepComplete(StepQueries, n)
	return nil
}

func (r *Runner) ingest(ctx context.Context, reporter Reporter) error {
	reporter.OnStepStart(StepSeasons)
	seasons, err := r.fetcher.FetchSeasons(ctx)
	if err != nil {
		return fail(reporter, StepSeasons, err)
	}
	if err := r.db.Ingest(ctx, SeasonsTable, store.Rows(seasons), true); err != nil {
		return fail(reporter, StepSeasons, err)
	}
	reporter.OnStepComplete(StepSeasons, len(seasons))

	reporter.OnStepStart(StepGames)
	r.db.Truncate(ctx, GamesTable)
	total := 0
	for idx, season := range seasons {
		if err := ctx.Err(); err != nil {
			return fail(reporter, StepGames, err)
		}

		games, err := r.fetcher.FetchGames(ctx, season)
		if err != nil {
			return fail(reporter, StepGames, fmt.Errorf("season %d: %w", season, err))
		}
		reporter.OnSeason(season, idx, len(seasons), len(games))
		if len(games) == 0 {
			r.logger.WithField(logging.FieldSeason, season).Warn("no games returned, skipping")
			continue
		}
		if err := r.db.Ingest(ctx, GamesTable, store.Rows(games), false); err != nil {
			return fail(reporter, StepGames, fmt.Errorf("season %d: %w", season, err))
		}
		total += len(games)
	}
	reporter.OnStepComplete(StepGames, total)

	reporter.OnStepStart(StepTeams)
	teams, err := r.fetcher.FetchTeams(ctx)
	if err != nil {
		return fail(reporter, StepTeams, err)
	}
	if err := r.db.Ingest(ctx, TeamsTable, store.Rows(teams), true); err != nil {
		return fail(reporter, StepTeams, err)
	}
	reporter.OnStepComplete(StepTeams, len(teams))
	return nil
}

func fail(reporter Reporter, step Step, err error) error {
	reporter.OnError(step, err)
	return fmt.Errorf("%s: %w", step, err)
}

type nopReporter struct{}

func (nopReporter) OnStepStart(Step)            {}
func (nopReporter) OnSeason(int, int, int, int) {}
func (nopReporter) OnStepComplete(Step, int)    {}
func (nopReporter) OnError(Step, error)         {}
