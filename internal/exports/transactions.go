package exports

import (
	"sort"
	"strings"
	"time"

	"grantcuts/internal/core"
)

// DeobRow is one de-obligating transaction enriched with its award's
// outcome label and the era flag.
type DeobRow struct {
	AwardID              string
	ActionDate           time.Time
	Obligation           float64 // signed, always negative
	DeobligatedAmountUSD float64 // -Obligation
	Label                core.Label

	ActionTypeCode          string
	ActionTypeDescription   string
	CorrectionIndicatorCode string
	CorrectionIndicatorDesc string
	RecipientName           string
	RecipientCity           string
	RecipientState          string
	PlaceOfPerformanceCity  string
	PlaceOfPerformanceState string

	TrumpEraFlag bool
}

// CityMonthRow is the de-obligated total for one (month, city, state, era)
// bucket, feeding the animated city map.
type CityMonthRow struct {
	Month                time.Time // first day of the month
	City                 string
	State                string
	TrumpEraFlag         bool
	DeobligatedAmountUSD float64
}

// CityState is a distinct (city, state) pair surfaced for the external
// geocoding collaborator.
type CityState struct {
	City  string
	State string
}

// BuildDeobligations selects the negative transactions from the ordered
// table and joins each one to its award's label. Input order is preserved.
func BuildDeobligations(txs []core.Transaction, snaps []core.AwardSnapshot, cutoff time.Time) []DeobRow {
	labels := make(map[string]core.Label, len(snaps))
	for _, s := range snaps {
		labels[s.AwardID] = s.Label
	}

	var rows []DeobRow
	for _, tx := range txs {
		if tx.Obligation >= 0 {
			continue
		}
		rows = append(rows, DeobRow{
			AwardID:              tx.AwardID,
			ActionDate:           tx.ActionDate,
			Obligation:           tx.Obligation,
			DeobligatedAmountUSD: -tx.Obligation,
			Label:                labels[tx.AwardID],

			ActionTypeCode:          tx.ActionTypeCode,
			ActionTypeDescription:   tx.ActionTypeDescription,
			CorrectionIndicatorCode: tx.CorrectionIndicatorCode,
			CorrectionIndicatorDesc: tx.CorrectionIndicatorDesc,
			RecipientName:           tx.RecipientName,
			RecipientCity:           strings.TrimSpace(tx.RecipientCity),
			RecipientState:          strings.TrimSpace(tx.RecipientState),
			PlaceOfPerformanceCity:  tx.PlaceOfPerformanceCity,
			PlaceOfPerformanceState: tx.PlaceOfPerformanceState,

			TrumpEraFlag: inEra(tx.ActionDate, cutoff),
		})
	}
	return rows
}

// BuildCityMonth rolls de-obligated dollars up by calendar month, recipient
// city/state and era flag. Rows without a usable date are skipped; the
// rollup is for the time axis of the map and an undated cut has no month.
func BuildCityMonth(rows []DeobRow) []CityMonthRow {
	type key struct {
		month time.Time
		city  string
		state string
		era   bool
	}

	totals := make(map[key]float64)
	for _, r := range rows {
		if r.ActionDate.IsZero() {
			continue
		}
		k := key{
			month: time.Date(r.ActionDate.Year(), r.ActionDate.Month(), 1, 0, 0, 0, 0, time.UTC),
			city:  r.RecipientCity,
			state: r.RecipientState,
			era:   r.TrumpEraFlag,
		}
		totals[k] += r.DeobligatedAmountUSD
	}

	out := make([]CityMonthRow, 0, len(totals))
	for k, v := range totals {
		out = append(out, CityMonthRow{
			Month:                k.month,
			City:                 k.city,
			State:                k.state,
			TrumpEraFlag:         k.era,
			DeobligatedAmountUSD: v,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Month.Equal(b.Month) {
			return a.Month.Before(b.Month)
		}
		if a.City != b.City {
			return a.City < b.City
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return !a.TrumpEraFlag && b.TrumpEraFlag
	})
	return out
}

// CityStatePairs returns the distinct non-empty (city, state) pairs in rows,
// sorted, for the geocoding collaborator.
func CityStatePairs(rows []DeobRow) []CityState {
	seen := make(map[CityState]bool)
	for _, r := range rows {
		if r.RecipientCity == "" || r.RecipientState == "" {
			continue
		}
		seen[CityState{City: r.RecipientCity, State: r.RecipientState}] = true
	}

	out := make([]CityState, 0, len(seen))
	for cs := range seen {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].State < out[j].State
	})
	return out
}
