package datasets

import (
	"covidfeed/internal/core"
	"covidfeed/internal/covid"
	"covidfeed/internal/frame"
)

// The JHU CSSE time series repository publishes one wide CSV per case
// status, updated daily on the master branch.
const jhuBase = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/"

func init() {
	registerJhuConfirmed()
	registerJhuDeaths()
	registerJhuRecovered()
}

func registerJhuConfirmed() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:       "jhu_confirmed",
			Group:     "timeseries",
			Label:     "Confirmed cases",
			SourceURL: jhuBase + "time_series_covid19_confirmed_global.csv",
			Filename:  "time_series_covid19_confirmed_global.csv",
		},
		HeaderHints: []string{"Province/State", "Country/Region"},
		Project:     itemsProjector(covid.StatusConfirmed),
	})
}

func registerJhuDeaths() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:       "jhu_deaths",
			Group:     "timeseries",
			Label:     "Deaths",
			SourceURL: jhuBase + "time_series_covid19_deaths_global.csv",
			Filename:  "time_series_covid19_deaths_global.csv",
		},
		HeaderHints: []string{"Province/State", "Country/Region"},
		Project:     itemsProjector(covid.StatusDeaths),
	})
}

func registerJhuRecovered() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:       "jhu_recovered",
			Group:     "timeseries",
			Label:     "Recovered cases",
			SourceURL: jhuBase + "time_series_covid19_recovered_global.csv",
			Filename:  "time_series_covid19_recovered_global.csv",
		},
		HeaderHints: []string{"Province/State", "Country/Region"},
		Project:     itemsProjector(covid.StatusRecovered),
	})
}

// itemsProjector builds a projection that tags every produced item with
// the given case status and appends it to the run accumulator.
func itemsProjector(status covid.Status) func(*frame.Table, *core.Accumulator) (int, error) {
	return func(t *frame.Table, acc *core.Accumulator) (int, error) {
		items, err := covid.ProjectItems(t, status)
		if err != nil {
			return 0, err
		}
		acc.Items = append(acc.Items, items...)
		return len(items), nil
	}
}
