package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"grantcuts/internal/core"
)

var (
	ErrMissingGeoColumn  = errors.New("no GEO_ID/GEOID column found in DP05 extract")
	ErrMissingNameColumn = errors.New("no NAME / Geographic Area Name column found in DP05 extract")
)

// ACS DP05 variable codes for the demographic fields we surface.
const (
	dp05Population   = "DP05_0001E"
	dp05WhiteNonHisp = "DP05_0037E"
	dp05Black        = "DP05_0038E"
	dp05Asian        = "DP05_0047E"
	dp05Hispanic     = "DP05_0076E"
)

const countyFIPSDigits = 5

// LoadCountyLookup reads the ACS DP05 county extract at path. The file is
// tab-separated even though the Census portal names it .csv.
func LoadCountyLookup(path string) ([]core.CountyDemographics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DP05 extract: %w", err)
	}
	defer f.Close()

	rows, err := ReadCountyLookup(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadCountyLookup parses the DP05 extract into one CountyDemographics row
// per county. Race counts are converted to percentages of total population;
// missing or unparseable values stay nil so join misses are visible
// downstream.
func ReadCountyLookup(r io.Reader) ([]core.CountyDemographics, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read DP05 header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	geoIdx, ok := cols["GEO_ID"]
	if !ok {
		if geoIdx, ok = cols["GEOID"]; !ok {
			return nil, ErrMissingGeoColumn
		}
	}
	nameIdx, ok := cols["NAME"]
	if !ok {
		if nameIdx, ok = cols["Geographic Area Name"]; !ok {
			return nil, ErrMissingNameColumn
		}
	}

	var out []core.CountyDemographics
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		geoID := strings.TrimSpace(at(record, geoIdx))
		row := core.CountyDemographics{
			FIPS: countyFIPS(geoID),
			Name: strings.TrimSpace(at(record, nameIdx)),
		}

		row.Population = numericCell(record, cols, dp05Population)
		row.PctBlack = pctOfPopulation(numericCell(record, cols, dp05Black), row.Population)
		row.PctAsian = pctOfPopulation(numericCell(record, cols, dp05Asian), row.Population)
		row.PctHispanic = pctOfPopulation(numericCell(record, cols, dp05Hispanic), row.Population)
		if pctWhite := pctOfPopulation(numericCell(record, cols, dp05WhiteNonHisp), row.Population); pctWhite != nil {
			minority := 100 - *pctWhite
			row.PctMinority = &minority
		}

		out = append(out, row)
	}

	return out, nil
}

// countyFIPS derives the 5-digit county code from a GEO_ID like
// "0500000US25001".
func countyFIPS(geoID string) string {
	if len(geoID) <= countyFIPSDigits {
		return geoID
	}
	return geoID[len(geoID)-countyFIPSDigits:]
}

func numericCell(record []string, cols map[string]int, name string) *float64 {
	i, ok := cols[name]
	if !ok {
		return nil
	}
	v, parsed := parseAmount(at(record, i))
	if !parsed {
		return nil
	}
	return &v
}

func pctOfPopulation(count, population *float64) *float64 {
	if count == nil || population == nil || *population <= 0 {
		return nil
	}
	pct := *count / *population * 100
	return &pct
}
