package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fortuna/nbaduck/internal/record"
)

// ColumnType is one of the four logical column types a table can hold.
type ColumnType int

const (
	String ColumnType = iota
	Integer
	Float
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Boolean:
		return "BOOLEAN"
	default:
		return "STRING"
	}
}

// Column is a named, typed table column.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is an ordered column list.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// yearKey is the column bare scalar rows are wrapped into. The seasons
// endpoint is the only payload that is a plain list.
const yearKey = "year"

// Rows converts a typed slice into the []any Ingest accepts.
func Rows[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// NormalizeRows prepares raw rows for typing. If any element is not a
// record, every element is wrapped as {"year": v}. Nested record and array
// values are replaced by their JSON text.
func NormalizeRows(rows []any) ([]record.Record, error) {
	wrap := false
	for _, row := range rows {
		if _, ok := asRecord(row); !ok {
			wrap = true
			break
		}
	}

	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		var rec record.Record
		if wrap {
			rec = record.New(record.Field{Key: yearKey, Value: row})
		} else {
			rec, _ = asRecord(row)
		}
		flat, err := flattenNested(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, flat)
	}
	return out, nil
}

// InferSchema derives one column per key, in first-seen key order. A
// column's type follows its non-null values: mixed INTEGER and FLOAT widen to
// FLOAT, any other mix or an all-null column is STRING. Nested values must
// already be flattened; any left over are typed STRING.
func InferSchema(rows []record.Record) (Schema, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	var order []string
	types := make(map[string]ColumnType)
	seen := make(map[string]bool)
	known := make(map[string]bool)

	for _, row := range rows {
		for _, f := range row.Fields() {
			if !known[f.Key] {
				known[f.Key] = true
				order = append(order, f.Key)
			}
			if f.Value == nil {
				continue
			}
			t := typeOf(f.Value)
			if !seen[f.Key] {
				seen[f.Key] = true
				types[f.Key] = t
				continue
			}
			types[f.Key] = widen(types[f.Key], t)
		}
	}

	schema := make(Schema, len(order))
	for i, name := range order {
		t := String
		if seen[name] {
			t = types[name]
		}
		schema[i] = Column{Name: name, Type: t}
	}
	return schema, nil
}

func typeOf(v any) ColumnType {
	switch v.(type) {
	case int64:
		return Integer
	case float64:
		return Float
	case bool:
		return Boolean
	default:
		return String
	}
}

func widen(a, b ColumnType) ColumnType {
	if a == b {
		return a
	}
	if (a == Integer && b == Float) || (a == Float && b == Integer) {
		return Float
	}
	return String
}

// bindValue converts a row value to what gets bound for a column of type t.
func bindValue(t ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Integer:
		if i, ok := v.(int64); ok {
			return i, nil
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case String:
		return stringValue(v)
	}
	return nil, fmt.Errorf("value %v (%T) does not fit column type %s", v, v, t)
}

func stringValue(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	case time.Time:
		return s.Format(time.RFC3339Nano), nil
	}
	b, err := record.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func asRecord(v any) (record.Record, bool) {
	switch r := v.(type) {
	case record.Record:
		return r, true
	case *record.Record:
		if r == nil {
			return record.Record{}, false
		}
		return *r, true
	}
	return record.Record{}, false
}

func flattenNested(rec record.Record) (record.Record, error) {
	out := rec.Clone()
	for _, f := range rec.Fields() {
		switch f.Value.(type) {
		case record.Record, []any:
			b, err := record.Marshal(f.Value)
			if err != nil {
				return record.Record{}, fmt.Errorf("serialize %s: %w", f.Key, err)
			}
			out.Set(f.Key, string(b))
		}
	}
	return out, nil
}
