// Package transform builds the derived reporting tables from the ingested
// base tables.
package transform

import (
	"context"
	"fmt"

	"github.com/fortuna/nbaduck/internal/record"
	"github.com/fortuna/nbaduck/internal/store"
)

const (
	// TeamsTable is the derived table of NBA franchises in the standard league.
	TeamsTable = "nba_standard_league"
	// GamesTable is the derived table of flattened standard league games.
	GamesTable = "games_standard_league"

	standardLeague = "standard"
)

// Ingester replace-creates a table from rows.
type Ingester interface {
	Ingest(ctx context.Context, table string, rows []any, replace bool) error
}

// StandardLeagueTeams keeps franchises that play in the standard league and
// flattens their conference and division. The id and name fields become
// team_id and team_name; team_id, team_name, conference and division are
// appended after the remaining fields in that order.
func StandardLeagueTeams(teams []record.Record) ([]record.Record, error) {
	out := make([]record.Record, 0, len(teams))
	for i, team := range teams {
		leagues, err := nestedRecord(team, "leagues")
		if err != nil {
			return nil, fmt.Errorf("team %d: %w", i, err)
		}
		standard, ok := nestedField(leagues, standardLeague)
		if !ok {
			continue
		}
		if franchise, _ := team.Get("nbaFranchise"); franchise != true {
			continue
		}

		row := team.Clone()
		row.Rename("id", "team_id")
		row.Rename("name", "team_name")
		row.Delete("leagues")
		conference, _ := standard.Get("conference")
		division, _ := standard.Get("division")
		row.Set("conference", conference)
		row.Set("division", division)
		out = append(out, row)
	}
	return out, nil
}

// BuildTeams replace-creates nba_standard_league from the teams rows and
// returns how many rows it holds.
func BuildTeams(ctx context.Context, db Ingester, teams []record.Record) (int, error) {
	rows, err := StandardLeagueTeams(teams)
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", TeamsTable, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("build %s: %w", TeamsTable, store.ErrNoRows)
	}
	if err := db.Ingest(ctx, TeamsTable, store.Rows(rows), true); err != nil {
		return 0, fmt.Errorf("build %s: %w", TeamsTable, err)
	}
	return len(rows), nil
}

// nestedRecord reads key as an object, accepting either the decoded value or
// the JSON text the generic ingest stored. A missing or null value is empty.
func nestedRecord(r record.Record, key string) (record.Record, error) {
	v, _ := r.Get(key)
	switch t := v.(type) {
	case nil:
		return record.Record{}, nil
	case record.Record:
		return t, nil
	case string:
		decoded, err := record.Decode([]byte(t))
		if err != nil {
			return record.Record{}, fmt.Errorf("parse %s: %w", key, err)
		}
		if decoded == nil {
			return record.Record{}, nil
		}
		rec, ok := decoded.(record.Record)
		if !ok {
			return record.Record{}, fmt.Errorf("parse %s: %w", key, record.ErrNotObject)
		}
		return rec, nil
	}
	return record.Record{}, fmt.Errorf("parse %s: unexpected %T", key, v)
}

// nestedField returns r[key] when it is a non-empty object.
func nestedField(r record.Record, key string) (record.Record, bool) {
	v, _ := r.Get(key)
	rec, ok := v.(record.Record)
	if !ok || rec.Len() == 0 {
		return record.Record{}, false
	}
	return rec, true
}
