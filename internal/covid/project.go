package covid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"covidfeed/internal/frame"
)

// dateColumnRegex matches normalized date columns (d_20200321).
var dateColumnRegex = regexp.MustCompile(`^d_[0-9]+$`)

// ProjectItems turns a normalized table into one Item per row, in row
// order. Every column matching d_<digits> contributes one timeline
// entry per row, in column order.
//
// The row's status column decides each item's status when the table has
// one; otherwise fallback is stamped on every item. Missing or
// unparseable lat/lon cells fail the whole batch.
func ProjectItems(t *frame.Table, fallback Status) ([]Item, error) {
	if t == nil {
		return nil, fmt.Errorf("project items: nil table")
	}

	idx := t.Index()
	statusPos, hasStatus := idx["status"]
	if !hasStatus && !fallback.Valid() {
		return nil, fmt.Errorf("project %s: no status column and no fallback status", t.Name)
	}

	provincePos, ok := idx["province_state"]
	if !ok {
		return nil, fmt.Errorf("project %s: missing column province_state", t.Name)
	}
	countryPos, ok := idx["country_region"]
	if !ok {
		return nil, fmt.Errorf("project %s: missing column country_region", t.Name)
	}
	latPos, ok := idx["lat"]
	if !ok {
		return nil, fmt.Errorf("project %s: missing column lat", t.Name)
	}
	lonPos, ok := idx["lon"]
	if !ok {
		return nil, fmt.Errorf("project %s: missing column lon", t.Name)
	}

	type dateColumn struct {
		pos  int
		name string
	}
	var dateCols []dateColumn
	for i, name := range t.Columns {
		if dateColumnRegex.MatchString(name) {
			dateCols = append(dateCols, dateColumn{pos: i, name: name})
		}
	}

	items := make([]Item, 0, len(t.Rows))
	for ri, row := range t.Rows {
		status := fallback
		if hasStatus {
			if raw := strings.TrimSpace(stringCell(row, statusPos)); raw != "" {
				parsed, err := ParseStatus(raw)
				if err != nil {
					return nil, fmt.Errorf("project %s row %d: %w", t.Name, ri+1, err)
				}
				status = parsed
			}
		}
		if !status.Valid() {
			return nil, fmt.Errorf("project %s row %d: empty status", t.Name, ri+1)
		}

		lat, err := floatCell(row, latPos)
		if err != nil {
			return nil, fmt.Errorf("project %s row %d: lat: %w", t.Name, ri+1, err)
		}
		lon, err := floatCell(row, lonPos)
		if err != nil {
			return nil, fmt.Errorf("project %s row %d: lon: %w", t.Name, ri+1, err)
		}

		timeline := NewTimeline()
		for _, dc := range dateCols {
			if dc.pos >= len(row) {
				return nil, fmt.Errorf("project %s row %d: %w: no cell for column %q",
					t.Name, ri+1, frame.ErrValueCast, dc.name)
			}
			v, ok := row[dc.pos].(int64)
			if !ok {
				return nil, fmt.Errorf("project %s row %d, column %q: %w: cell is %T, not int64",
					t.Name, ri+1, dc.name, frame.ErrValueCast, row[dc.pos])
			}
			timeline.Set(dc.name, v)
		}

		items = append(items, Item{
			Status:        status,
			ProvinceState: strings.TrimSpace(stringCell(row, provincePos)),
			CountryRegion: strings.TrimSpace(stringCell(row, countryPos)),
			Lat:           lat,
			Lon:           lon,
			Timeline:      timeline,
		})
	}

	return items, nil
}

// stringCell returns the cell at pos as a string. Out-of-range or
// non-string cells read as empty.
func stringCell(row []any, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	s, _ := row[pos].(string)
	return s
}

// floatCell parses the cell at pos as a float64. Missing and
// unparseable cells are errors.
func floatCell(row []any, pos int) (float64, error) {
	if pos < 0 || pos >= len(row) {
		return 0, fmt.Errorf("missing cell")
	}
	s, ok := row[pos].(string)
	if !ok {
		return 0, fmt.Errorf("cell is %T, not a string", row[pos])
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as float", s)
	}
	return f, nil
}
