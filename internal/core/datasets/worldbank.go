package datasets

import (
	"covidfeed/internal/core"
	"covidfeed/internal/covid"
	"covidfeed/internal/frame"
)

func init() {
	registerWorldBankPopulation()
}

// The World Bank distributes SP.POP.TOTL as a zip download without a
// stable direct CSV URL, so this dataset reads from the input directory
// only. Set COVIDFEED_SOURCE_WB_POPULATION to fetch from a mirror.
func registerWorldBankPopulation() {
	core.Register(core.DatasetDefinition{
		Info: core.DatasetInfo{
			Key:      "wb_population",
			Group:    "population",
			Label:    "Population history",
			Filename: "population.csv",
		},
		HeaderHints: []string{"Country Name", "Country Code"},
		Project:     projectPopulation,
	})
}

func projectPopulation(t *frame.Table, acc *core.Accumulator) (int, error) {
	records, err := covid.ProjectPopulation(t)
	if err != nil {
		return 0, err
	}
	acc.Population = append(acc.Population, records...)
	return len(records), nil
}
