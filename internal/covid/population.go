package covid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"covidfeed/internal/frame"
)

// yearColumnRegex matches normalized year columns (y_1960).
var yearColumnRegex = regexp.MustCompile(`^y_[0-9]+$`)

// ProjectPopulation turns a normalized population table into one
// record per country, in row order.
//
// Every column matching y_<year> contributes the year's population.
// Blank and missing cells read as zero; zero years are excluded from
// the yearly map. A row whose yearly map ends up empty produces no
// record at all. Non-numeric non-blank cells fail the whole batch.
func ProjectPopulation(t *frame.Table) ([]PopulationHistory, error) {
	if t == nil {
		return nil, fmt.Errorf("project population: nil table")
	}

	idx := t.Index()
	countryPos, ok := idx["country_name"]
	if !ok {
		countryPos, ok = idx["country"]
	}
	if !ok {
		return nil, fmt.Errorf("project %s: missing column country_name", t.Name)
	}

	type yearColumn struct {
		pos  int
		year int
	}
	var yearCols []yearColumn
	for i, name := range t.Columns {
		if !yearColumnRegex.MatchString(name) {
			continue
		}
		year, err := strconv.Atoi(name[len("y_"):])
		if err != nil {
			return nil, fmt.Errorf("project %s: column %q: year out of range", t.Name, name)
		}
		yearCols = append(yearCols, yearColumn{pos: i, year: year})
	}

	var out []PopulationHistory
	for ri, row := range t.Rows {
		country := strings.TrimSpace(stringCell(row, countryPos))

		yearly := make(map[int]int64)
		latestYear := 0
		for _, yc := range yearCols {
			raw := strings.TrimSpace(stringCell(row, yc.pos))
			if raw == "" {
				continue
			}
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("project %s row %d, year %d: %w: %q is not an integer",
					t.Name, ri+1, yc.year, frame.ErrValueCast, raw)
			}
			if v == 0 {
				continue
			}
			yearly[yc.year] = v
			if yc.year > latestYear {
				latestYear = yc.year
			}
		}

		// All-zero rows carry no information and are filtered out.
		if len(yearly) == 0 {
			continue
		}

		if country == "" {
			return nil, fmt.Errorf("project %s row %d: empty country name", t.Name, ri+1)
		}

		out = append(out, PopulationHistory{
			Country:          country,
			LatestYear:       latestYear,
			LatestPopulation: yearly[latestYear],
			Yearly:           yearly,
		})
	}

	return out, nil
}
