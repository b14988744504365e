package covid

import "sort"

// CountryTotal is the latest cumulative count per series for one
// country, summed over its provinces.
type CountryTotal struct {
	CountryRegion string `json:"country_region"`
	Confirmed     int64  `json:"confirmed"`
	Deaths        int64  `json:"deaths"`
	Recovered     int64  `json:"recovered"`
}

// Totals is the cross-dataset rollup written alongside the per-country
// documents.
type Totals struct {
	// AsOf maps each status to the most recent date key seen in any of
	// its timelines.
	AsOf map[Status]string `json:"as_of"`
	// Global maps each status to the sum of every item's latest count.
	Global map[Status]int64 `json:"global"`
	// Countries holds per-country sums, sorted by country name.
	Countries []CountryTotal `json:"countries"`
}

// ComputeTotals aggregates the latest timeline counts across items.
// Items with empty timelines contribute nothing.
func ComputeTotals(items []Item) *Totals {
	totals := &Totals{
		AsOf:   make(map[Status]string),
		Global: make(map[Status]int64),
	}

	byCountry := make(map[string]*CountryTotal)
	for _, item := range items {
		key, latest, ok := item.Timeline.Latest()
		if !ok {
			continue
		}

		// Date keys are d_YYYYMMDD, so lexical order is date order.
		if key > totals.AsOf[item.Status] {
			totals.AsOf[item.Status] = key
		}
		totals.Global[item.Status] += latest

		ct, ok := byCountry[item.CountryRegion]
		if !ok {
			ct = &CountryTotal{CountryRegion: item.CountryRegion}
			byCountry[item.CountryRegion] = ct
		}
		switch item.Status {
		case StatusConfirmed:
			ct.Confirmed += latest
		case StatusDeaths:
			ct.Deaths += latest
		case StatusRecovered:
			ct.Recovered += latest
		}
	}

	totals.Countries = make([]CountryTotal, 0, len(byCountry))
	for _, ct := range byCountry {
		totals.Countries = append(totals.Countries, *ct)
	}
	sort.Slice(totals.Countries, func(i, j int) bool {
		return totals.Countries[i].CountryRegion < totals.Countries[j].CountryRegion
	})

	return totals
}
