package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalize classifies every header of t and returns a fresh table with
// renamed columns and cast values. The input table is never mutated.
//
// Steps, in order:
//
//  1. A column literally named "Long" is renamed to "Lon" before
//     classification, so [Lat, Long] comes out as [lat, lon].
//  2. Every header is classified (see Classify). Any failure aborts.
//  3. If two input columns normalize to the same name, the whole batch
//     fails with ErrRenameCollision before any value is touched.
//  4. Headers are replaced as one batch; column order is preserved.
//  5. For every date-like column, in original column order, each cell
//     is cast string -> int64. A cell that does not parse fails the
//     batch with ErrValueCast.
//
// Normalize is idempotent: running it on its own output changes
// nothing.
func Normalize(t *Table, dateKey string) (*Table, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table", ErrMalformedHeader)
	}

	classes := make([]Classification, len(t.Columns))
	for i, col := range t.Columns {
		header := col
		if strings.TrimSpace(header) == "Long" {
			header = "Lon"
		}
		cl, err := Classify(header, dateKey)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		classes[i] = cl
	}

	seen := make(map[string]int, len(classes))
	for i, cl := range classes {
		if prev, dup := seen[cl.Name]; dup {
			return nil, fmt.Errorf("%w: columns %q and %q both normalize to %q",
				ErrRenameCollision, t.Columns[prev], t.Columns[i], cl.Name)
		}
		seen[cl.Name] = i
	}

	out := t.Clone()
	for i, cl := range classes {
		out.Columns[i] = cl.Name
	}

	for ci, cl := range classes {
		if !cl.CastInt {
			continue
		}
		for ri, row := range out.Rows {
			if ci >= len(row) {
				return nil, fmt.Errorf("%w: row %d has no cell for column %q",
					ErrValueCast, ri+1, cl.Name)
			}
			v, err := castInt64(row[ci])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", ri+1, cl.Name, err)
			}
			row[ci] = v
		}
	}

	return out, nil
}

// castInt64 converts a cell to int64. Cells already cast by a previous
// normalization pass go through unchanged.
func castInt64(cell any) (int64, error) {
	switch v := cell.(type) {
	case int64:
		return v, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrValueCast, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unsupported cell type %T", ErrValueCast, cell)
	}
}
