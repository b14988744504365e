// Package covid projects normalized tables into the typed records the
// output tree is built from: per-region case timelines and per-country
// population histories.
package covid

import "fmt"

// Status identifies which case series a record belongs to.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusDeaths    Status = "deaths"
	StatusRecovered Status = "recovered"
)

// Statuses lists all valid statuses in stable order.
var Statuses = []Status{StatusConfirmed, StatusDeaths, StatusRecovered}

// Valid reports whether s is one of the three case series.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusDeaths, StatusRecovered:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q (want confirmed, deaths or recovered)", raw)
	}
	return s, nil
}

// Item is one region's case timeline for a single status.
type Item struct {
	Status        Status    `json:"status"`
	ProvinceState string    `json:"province_state"`
	CountryRegion string    `json:"country_region"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Timeline      *Timeline `json:"timeline"`
}

// PopulationHistory is one country's yearly population series. Yearly
// holds only non-zero years; LatestPopulation is the value at
// LatestYear, the highest year present.
type PopulationHistory struct {
	Country          string        `json:"country"`
	LatestYear       int           `json:"latest_year"`
	LatestPopulation int64         `json:"latest_population"`
	Yearly           map[int]int64 `json:"yearly"`
}
