package transform

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fortuna/nbaduck/internal/record"
)

// GamesStandardLeagueQuery flattens standard league games. The JSON operators
// and casts are understood by both DuckDB and PostgreSQL.
const GamesStandardLeagueQuery = `WITH cte AS (
	SELECT
		*,
		CAST("date" AS JSON) AS date_json,
		CAST("teams" AS JSON) AS teams_json,
		CAST("scores" AS JSON) AS scores_json
	FROM "games"
	WHERE "league" = 'standard'
)
SELECT
	"id" AS game_id,
	"season",
	CAST(SUBSTR(date_json->>'start', 1, 10) AS DATE) AS "date",
	teams_json->'home'->>'name' AS home_team,
	teams_json->'visitors'->>'name' AS away_team,
	CAST(scores_json->'home'->>'points' AS INTEGER) AS home_score,
	CAST(scores_json->'visitors'->>'points' AS INTEGER) AS away_score
FROM cte`

// TableBuilder replace-creates a table from a query and reads tables back.
type TableBuilder interface {
	CreateTableAs(ctx context.Context, table, query string) error
	Query(ctx context.Context, table string) ([]record.Record, error)
}

// BuildGames replace-creates games_standard_league from the games table in a
// single statement and returns how many rows it holds.
func BuildGames(ctx context.Context, db TableBuilder) (int, error) {
	if err := db.CreateTableAs(ctx, GamesTable, GamesStandardLeagueQuery); err != nil {
		return 0, fmt.Errorf("build %s: %w", GamesTable, err)
	}
	rows, err := db.Query(ctx, GamesTable)
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", GamesTable, err)
	}
	return len(rows), nil
}

// StandardLeagueGames is the row-at-a-time form of GamesStandardLeagueQuery,
// producing the same columns and values.
func StandardLeagueGames(games []record.Record) ([]record.Record, error) {
	var out []record.Record
	for i, game := range games {
		if league, _ := game.Get("league"); league != standardLeague {
			continue
		}

		date, err := nestedRecord(game, "date")
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}
		teams, err := nestedRecord(game, "teams")
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}
		scores, err := nestedRecord(game, "scores")
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}

		day, err := startDate(date)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}
		homeScore, err := points(scores, "home")
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}
		awayScore, err := points(scores, "visitors")
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}

		id, _ := game.Get("id")
		season, _ := game.Get("season")
		out = append(out, record.New(
			record.Field{Key: "game_id", Value: id},
			record.Field{Key: "season", Value: season},
			record.Field{Key: "date", Value: day},
			record.Field{Key: "home_team", Value: teamName(teams, "home")},
			record.Field{Key: "away_team", Value: teamName(teams, "visitors")},
			record.Field{Key: "home_score", Value: homeScore},
			record.Field{Key: "away_score", Value: awayScore},
		))
	}
	return out, nil
}

// startDate takes the calendar day of date.start, ignoring the time part.
func startDate(date record.Record) (any, error) {
	v, _ := date.Get("start")
	s, ok := v.(string)
	if !ok {
		return nil, nil
	}
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("parse date.start: %w", err)
	}
	return day, nil
}

func teamName(teams record.Record, side string) any {
	team, ok := nestedField(teams, side)
	if !ok {
		return nil
	}
	name, _ := team.Get("name")
	if name == nil {
		return nil
	}
	return fmt.Sprint(name)
}

func points(scores record.Record, side string) (any, error) {
	score, ok := nestedField(scores, side)
	if !ok {
		return nil, nil
	}
	v, _ := score.Get("points")
	switch p := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return p, nil
	case string:
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse %s points: %w", side, err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%s points: unexpected %T", side, v)
}
