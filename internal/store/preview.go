package store

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fortuna/nbaduck/internal/record"
)

// maxCellWidth truncates long cells, mostly serialized JSON columns.
const maxCellWidth = 40

// Preview writes a titled, tab-aligned rendering of at most max rows of res.
func Preview(w io.Writer, title string, res *Result, max int) error {
	if res == nil {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%d rows)\n", title, len(res.Rows))
	if len(res.Columns) == 0 {
		return tw.Flush()
	}

	fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
	for i, row := range res.Rows {
		if max > 0 && i >= max {
			fmt.Fprintf(tw, "... %d more\n", len(res.Rows)-max)
			break
		}
		cells := make([]string, len(res.Columns))
		for j, col := range res.Columns {
			v, _ := row.Get(col)
			cells[j] = formatCell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	fmt.Fprintln(tw)
	return tw.Flush()
}

func formatCell(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = "NULL"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			s = t.Format(time.DateOnly)
		} else {
			s = t.Format(time.RFC3339)
		}
	default:
		var err error
		if s, err = stringValue(v); err != nil {
			s = fmt.Sprint(v)
		}
	}
	s = strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
	if r := []rune(s); len(r) > maxCellWidth {
		s = string(r[:maxCellWidth-3]) + "..."
	}
	return s
}

// scanValue maps what the drivers hand back onto record values. DECIMAL and
// HUGEINT results of aggregates come back as driver types.
func scanValue(v any) any {
	switch t := v.(type) {
	case *big.Int:
		if t.IsInt64() {
			return t.Int64()
		}
		return t.String()
	case interface{ Float64() float64 }:
		return t.Float64()
	case fmt.Stringer:
		if _, ok := v.(time.Time); !ok {
			return t.String()
		}
	}
	return record.Normalize(v)
}
