package exports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const csvDateLayout = "2006-01-02"

// WriteAwardsCSV writes the awards master table to path, creating parent
// directories as needed.
func WriteAwardsCSV(path string, rows []AwardRow) error {
	header, records := AwardsTable(rows)
	return writeCSV(path, header, records)
}

// AwardsTable renders the awards master as a header plus string records,
// shared by the CSV writer and the spreadsheet sink.
func AwardsTable(rows []AwardRow) ([]string, [][]string) {
	header := []string{
		"awardid",
		"recipient_name",
		"cfda_number",
		"cfda_title",
		"awarding_agency_name",
		"funding_agency_name",
		"final_cum_obligation",
		"total_negative_amount",
		"total_obligation_amount",
		"total_obligation_pos",
		"total_deobligation_neg",
		"total_outlayed_amount_for_overall_award",
		"gross_positive_obligation",
		"label",
		"explanation",
		"pct_outlayed_of_pos",
		"first_negative_date",
		"first_action_date",
		"last_action_date",
		"pre_trump_flag",
		"trump_era_flag",
		"awards_with_trump_cut",
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.AwardID,
			r.RecipientName,
			r.CFDANumber,
			r.CFDATitle,
			r.AwardingAgency,
			r.FundingAgency,
			fmtAmount(r.FinalCumObligation),
			fmtAmount(r.TotalNegativeAmount),
			fmtAmount(r.TotalObligationAmount),
			fmtAmount(r.TotalObligationPos),
			fmtAmount(r.TotalDeobligationNeg),
			fmtAmount(r.TotalOutlayed),
			fmtAmount(r.GrossPositiveObligation),
			string(r.Label),
			r.Explanation,
			fmtAmount(r.PctOutlayedOfPos),
			fmtDate(r.FirstNegativeDate),
			fmtDate(r.FirstActionDate),
			fmtDate(r.LastActionDate),
			fmtFlag(r.PreTrumpFlag),
			fmtFlag(r.TrumpEraFlag),
			fmtFlag(r.TrumpCutFlag),
		})
	}
	return header, records
}

// WriteDeobligationsCSV writes the transaction-level de-obligation table.
func WriteDeobligationsCSV(path string, rows []DeobRow) error {
	header := []string{
		"awardid",
		"action_date",
		"federal_action_obligation",
		"deobligated_amount_usd",
		"label",
		"action_type_code",
		"action_type_description",
		"correction_delete_indicator_code",
		"correction_delete_indicator_description",
		"recipient_name",
		"recipient_city_name",
		"recipient_state_code",
		"primary_place_of_performance_city_name",
		"primary_place_of_performance_state_code",
		"trump_era_flag",
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.AwardID,
			fmtDate(r.ActionDate),
			fmtAmount(r.Obligation),
			fmtAmount(r.DeobligatedAmountUSD),
			string(r.Label),
			r.ActionTypeCode,
			r.ActionTypeDescription,
			r.CorrectionIndicatorCode,
			r.CorrectionIndicatorDesc,
			r.RecipientName,
			r.RecipientCity,
			r.RecipientState,
			r.PlaceOfPerformanceCity,
			r.PlaceOfPerformanceState,
			fmtFlag(r.TrumpEraFlag),
		})
	}
	return writeCSV(path, header, records)
}

// WriteCityMonthCSV writes the city-month rollup.
func WriteCityMonthCSV(path string, rows []CityMonthRow) error {
	header := []string{
		"month",
		"recipient_city_name",
		"recipient_state_code",
		"trump_era_flag",
		"deobligated_amount_usd",
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			fmtDate(r.Month),
			r.City,
			r.State,
			fmtFlag(r.TrumpEraFlag),
			fmtAmount(r.DeobligatedAmountUSD),
		})
	}
	return writeCSV(path, header, records)
}

// WriteGeoCSV writes the county aggregation table.
func WriteGeoCSV(path string, rows []GeoRow) error {
	header := []string{
		"county_fips",
		"county_name",
		"recipient_county_name",
		"deobligated_amount_usd",
		"awards_with_any_cut",
		"population_total",
		"deob_dollars_per_capita",
		"cuts_per_10k_residents",
		"pct_minority",
		"pct_black",
		"pct_hispanic",
		"pct_asian",
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.CountyFIPS,
			r.CountyName,
			r.RecipientCounty,
			fmtAmount(r.DeobligatedAmountUSD),
			strconv.Itoa(r.AwardsWithAnyCut),
			fmtOptional(r.Population),
			fmtOptional(r.DeobDollarsPerCapita),
			fmtOptional(r.CutsPer10kResidents),
			fmtOptional(r.PctMinority),
			fmtOptional(r.PctBlack),
			fmtOptional(r.PctHispanic),
			fmtOptional(r.PctAsian),
		})
	}
	return writeCSV(path, header, records)
}

func writeCSV(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write records: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func fmtAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return fmtAmount(*v)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(csvDateLayout)
}

func fmtFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
