// Package frame provides the tabular model and header reshaping rules
// used by every ingestion path. A Table is read from CSV, its headers
// are classified and normalized into machine-friendly column names, and
// date-like columns have their values cast to int64 before projection.
package frame

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure classes surfaced during reshaping.
// All of them abort the batch; callers match with errors.Is.
var (
	ErrMalformedHeader = errors.New("malformed header")
	ErrRenameCollision = errors.New("rename collision")
	ErrDateParse       = errors.New("date parse failure")
	ErrValueCast       = errors.New("value cast failure")
)

// Kind identifies which classification rule matched a header.
type Kind int

const (
	KindPlain Kind = iota
	KindDate
	KindCompound
	KindYear
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindCompound:
		return "compound"
	case KindYear:
		return "year"
	default:
		return "plain"
	}
}

// Classification is the result of classifying a single header.
type Classification struct {
	Kind    Kind
	Name    string // normalized column name
	CastInt bool   // values in this column are cast string -> int64
}

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// Table is a positional table: row i, column j aligns with Columns[j].
// Cells are strings as read from CSV, or int64 after normalization
// casts a date-like column.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// NewTable creates an empty table with the given column headers.
func NewTable(name string, columns []string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
}

// Index builds a HeaderIndex for the table's current columns.
// Keys are lowercased for case-insensitive lookup. With duplicate
// columns the last occurrence wins.
func (t *Table) Index() HeaderIndex {
	idx := make(HeaderIndex, len(t.Columns))
	for i, c := range t.Columns {
		idx[strings.ToLower(strings.TrimSpace(c))] = i
	}
	return idx
}

// Clone returns a deep copy of the table. Rows share no backing arrays
// with the original.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
	}
	if t.Rows != nil {
		out.Rows = make([][]any, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = append([]any(nil), row...)
		}
	}
	return out
}

// Cell returns the cell at the given row and column position.
// Returns nil if either index is out of range.
func (t *Table) Cell(row, col int) any {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	if col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}
