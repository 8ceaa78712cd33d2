package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRows is returned when a schema has to be inferred from nothing.
	ErrNoRows = errors.New("store: cannot infer a schema from zero rows")

	// ErrUnknownTable is returned for lookups of a table that does not exist.
	ErrUnknownTable = errors.New("store: unknown table")
)

// SchemaMismatchError is returned when a non-replacing ingest targets an
// existing table whose columns differ from the inferred ones.
type SchemaMismatchError struct {
	Table    string
	Existing []string
	Incoming []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("store: table %s has columns [%s], batch has [%s]",
		e.Table, strings.Join(e.Existing, ", "), strings.Join(e.Incoming, ", "))
}
