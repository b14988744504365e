package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxHeaderScanRows is how many leading records are scanned when
// locating the header row. Source files sometimes carry title or note
// rows above the real header.
var MaxHeaderScanRows = 20

// ReadCSV decodes CSV from r into a Table. The reader is wrapped with
// BOM skipping and UTF-8 sanitization, so callers can pass raw file or
// network streams.
//
// headerHints names the leading columns of the expected header row; the
// first record whose cleaned cells match the hints (case-insensitive,
// in order) within MaxHeaderScanRows is taken as the header. With no
// hints the first non-empty record wins. Records above the header are
// discarded.
//
// Data rows shorter than the header are padded with empty cells; rows
// longer than the header are an error. Fully empty rows are dropped.
func ReadCSV(r io.Reader, name string, headerHints []string) (*Table, error) {
	cr := csv.NewReader(WrapReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv %s: empty input", name)
	}

	headerIdx := findHeaderRow(records, headerHints)
	if headerIdx < 0 {
		return nil, fmt.Errorf("parse csv %s: header not found (expected columns: %v)", name, headerHints)
	}

	header := make([]string, len(records[headerIdx]))
	for i, cell := range records[headerIdx] {
		header[i] = CleanCell(cell)
	}

	t := NewTable(name, header)
	for i, rec := range records[headerIdx+1:] {
		if isEmptyRow(rec) {
			continue
		}
		if len(rec) > len(header) {
			line := headerIdx + i + 2
			return nil, fmt.Errorf("parse csv %s: line %d has %d cells, header has %d",
				name, line, len(rec), len(header))
		}
		row := make([]any, len(header))
		for j := range header {
			if j < len(rec) {
				row[j] = CleanCell(rec[j])
			} else {
				row[j] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// ReadCSVFile reads a CSV file from disk. The table name is the file's
// base name.
func ReadCSVFile(path string, headerHints []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, filepath.Base(path), headerHints)
}

// findHeaderRow locates the header record. Returns -1 when no record
// matches within the scan window.
func findHeaderRow(records [][]string, hints []string) int {
	maxRows := MaxHeaderScanRows
	if len(records) < maxRows {
		maxRows = len(records)
	}

	for i := 0; i < maxRows; i++ {
		if len(hints) == 0 {
			if !isEmptyRow(records[i]) {
				return i
			}
			continue
		}
		if matchesHints(records[i], hints) {
			return i
		}
	}
	return -1
}

// matchesHints reports whether the record starts with the hinted
// columns, compared case-insensitively on cleaned cells.
func matchesHints(record, hints []string) bool {
	if len(record) < len(hints) {
		return false
	}
	for i, hint := range hints {
		if !strings.EqualFold(CleanCell(record[i]), CleanCell(hint)) {
			return false
		}
	}
	return true
}

func isEmptyRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// CleanCell strips common CSV artifacts from a cell:
//   - surrounding whitespace
//   - Excel formula wrappers (="value") and bare leading '='
//   - wrapping single or double quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
