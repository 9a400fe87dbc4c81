// Package exports builds the three flat tables the reporting layer
// consumes: the awards master, the de-obligation transaction table (with
// its city-month rollup), and the county geo aggregation.
//
// Every builder is a pure function of its inputs and emits rows in a
// deterministic order, so re-running an export over the same data produces
// byte-identical files.
package exports

import (
	"time"

	"grantcuts/internal/core"
)

// AwardRow is one row of the awards master table: identity, descriptive
// fields, trajectory aggregates, classification and period flags.
type AwardRow struct {
	AwardID        string
	RecipientName  string
	CFDANumber     string
	CFDATitle      string
	AwardingAgency string
	FundingAgency  string

	FinalCumObligation      float64
	TotalNegativeAmount     float64
	TotalObligationAmount   float64
	TotalObligationPos      float64
	TotalDeobligationNeg    float64 // absolute value of the negative total
	TotalOutlayed           float64
	GrossPositiveObligation float64

	Label            core.Label
	Explanation      string
	PctOutlayedOfPos float64

	FirstNegativeDate time.Time
	FirstActionDate   time.Time
	LastActionDate    time.Time

	// PreTrumpFlag and TrumpEraFlag are independent booleans; an award
	// active across the cutoff carries both.
	PreTrumpFlag bool
	TrumpEraFlag bool
	TrumpCutFlag bool // any de-obligation dated on/after the cutoff
}

// BuildAwardsMaster produces one row per classified award. txs must be the
// trajectory builder's ordered output; snaps its classified snapshots.
func BuildAwardsMaster(txs []core.Transaction, snaps []core.AwardSnapshot, cutoff time.Time) []AwardRow {
	type descriptive struct {
		recipient, cfdaNumber, cfdaTitle, awarding, funding string
	}

	desc := make(map[string]descriptive, len(snaps))
	trumpCut := make(map[string]bool)
	for _, tx := range txs {
		if _, ok := desc[tx.AwardID]; !ok {
			desc[tx.AwardID] = descriptive{
				recipient:  tx.RecipientName,
				cfdaNumber: tx.CFDANumber,
				cfdaTitle:  tx.CFDATitle,
				awarding:   tx.AwardingAgency,
				funding:    tx.FundingAgency,
			}
		}
		if tx.IsDeobligation && inEra(tx.ActionDate, cutoff) {
			trumpCut[tx.AwardID] = true
		}
	}

	rows := make([]AwardRow, 0, len(snaps))
	for _, snap := range snaps {
		d := desc[snap.AwardID]
		rows = append(rows, AwardRow{
			AwardID:        snap.AwardID,
			RecipientName:  d.recipient,
			CFDANumber:     d.cfdaNumber,
			CFDATitle:      d.cfdaTitle,
			AwardingAgency: d.awarding,
			FundingAgency:  d.funding,

			FinalCumObligation:      snap.FinalCumObligation,
			TotalNegativeAmount:     snap.TotalNegativeAmount,
			TotalObligationAmount:   snap.TotalObligationAmount,
			TotalObligationPos:      snap.GrossPositiveObligation,
			TotalDeobligationNeg:    -snap.TotalNegativeAmount,
			TotalOutlayed:           snap.TotalOutlayed,
			GrossPositiveObligation: snap.GrossPositiveObligation,

			Label:            snap.Label,
			Explanation:      snap.Explanation,
			PctOutlayedOfPos: snap.PctOutlayedOfPos,

			FirstNegativeDate: snap.FirstNegativeDate,
			FirstActionDate:   snap.FirstActionDate,
			LastActionDate:    snap.LastActionDate,

			PreTrumpFlag: !snap.FirstActionDate.IsZero() && snap.FirstActionDate.Before(cutoff),
			TrumpEraFlag: inEra(snap.LastActionDate, cutoff),
			TrumpCutFlag: trumpCut[snap.AwardID],
		})
	}
	return rows
}

// inEra reports whether t falls on or after the cutoff. Missing dates never
// fall in the era.
func inEra(t, cutoff time.Time) bool {
	return !t.IsZero() && !t.Before(cutoff)
}
