package exports

import (
	"sort"
	"strings"

	"grantcuts/internal/core"
)

// GeoRow is one county's de-obligation totals joined against the
// demographic lookup. Demographic fields are nil on a join miss; the
// county and its dollars are never dropped.
type GeoRow struct {
	CountyFIPS      string // empty when the lookup had no match
	CountyName      string // lookup spelling; empty on a miss
	RecipientCounty string // spelling from the extract, the join key

	DeobligatedAmountUSD float64
	AwardsWithAnyCut     int

	Population           *float64
	DeobDollarsPerCapita *float64
	CutsPer10kResidents  *float64
	PctMinority          *float64
	PctBlack             *float64
	PctHispanic          *float64
	PctAsian             *float64
}

// BuildGeoAggregation sums de-obligated dollars and counts distinct awards
// with any cut per recipient county, then left-joins county demographics.
func BuildGeoAggregation(txs []core.Transaction, lookup []core.CountyDemographics) []GeoRow {
	dollars := make(map[string]float64)
	awards := make(map[string]map[string]bool)
	for _, tx := range txs {
		if tx.Obligation >= 0 {
			continue
		}
		county := strings.TrimSpace(tx.RecipientCounty)
		dollars[county] += -tx.Obligation
		if awards[county] == nil {
			awards[county] = make(map[string]bool)
		}
		awards[county][tx.AwardID] = true
	}

	byName := make(map[string]core.CountyDemographics, len(lookup))
	for _, c := range lookup {
		byName[strings.TrimSpace(c.Name)] = c
	}

	counties := make([]string, 0, len(dollars))
	for county := range dollars {
		counties = append(counties, county)
	}
	sort.Strings(counties)

	rows := make([]GeoRow, 0, len(counties))
	for _, county := range counties {
		row := GeoRow{
			RecipientCounty:      county,
			DeobligatedAmountUSD: dollars[county],
			AwardsWithAnyCut:     len(awards[county]),
		}

		if demo, ok := byName[county]; ok {
			row.CountyFIPS = demo.FIPS
			row.CountyName = demo.Name
			row.Population = demo.Population
			row.PctMinority = demo.PctMinority
			row.PctBlack = demo.PctBlack
			row.PctHispanic = demo.PctHispanic
			row.PctAsian = demo.PctAsian

			if demo.Population != nil && *demo.Population > 0 {
				perCapita := row.DeobligatedAmountUSD / *demo.Population
				per10k := float64(row.AwardsWithAnyCut) / *demo.Population * 10000
				row.DeobDollarsPerCapita = &perCapita
				row.CutsPer10kResidents = &per10k
			}
		}

		rows = append(rows, row)
	}
	return rows
}
