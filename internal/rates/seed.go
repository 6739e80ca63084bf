package rates

import (
	_ "embed"
	"encoding/json"
)

// seedData is the bundled last-resort rate table. It ships inside the
// binary so GetRates always has a floor even with no cache and no network.
//
//go:embed seed_rates.json
var seedData []byte

// Seed returns a copy of the bundled rate table.
func Seed() RateTable {
	var table RateTable
	if err := json.Unmarshal(seedData, &table); err != nil {
		// The seed is compiled in; failing to parse it is a build defect.
		panic("rates: embedded seed data is invalid: " + err.Error())
	}
	return table
}
