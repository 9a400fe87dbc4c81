package core

import (
	"time"
)

const (
	LabelCancellation     Label = "CANCELLATION"
	LabelRescission       Label = "RESCISSION"
	LabelPartialResCumPos Label = "PARTIAL_RES_CUM_POS"
	LabelAdminOrPrepayAdj Label = "ADMIN_OR_PREPAY_ADJ"
	LabelNoDeobligation   Label = "NO_DEOBLIGATION"
)

type (
	// Label is the outcome classification of an award's full obligation history.
	Label string

	// Transaction is one row of the raw USAspending extract after identity
	// resolution and normalization. CumulativeObligation and IsDeobligation
	// are filled by the trajectory builder; everything else is immutable
	// once loaded.
	Transaction struct {
		RowIndex   int // position in the source file, used as the sort tie-break
		AwardID    string
		ActionDate time.Time // zero means the source value was unparseable
		Obligation float64   // federal_action_obligation, signed
		Outlay     float64   // total_outlayed_amount_for_overall_award

		RecipientName           string
		CFDANumber              string
		CFDATitle               string
		AwardingAgency          string
		FundingAgency           string
		ActionTypeCode          string
		ActionTypeDescription   string
		CorrectionIndicatorCode string
		CorrectionIndicatorDesc string
		RecipientCity           string
		RecipientState          string
		RecipientCounty         string
		PlaceOfPerformanceCity  string
		PlaceOfPerformanceState string

		CumulativeObligation float64
		IsDeobligation       bool
	}

	// AwardSnapshot is the per-award final state computed from the award's
	// ordered transaction sequence. Label, Explanation and PctOutlayedOfPos
	// are filled by ClassifySnapshot.
	AwardSnapshot struct {
		AwardID                 string
		FinalCumObligation      float64
		AnyNegative             bool
		TotalNegativeAmount     float64 // signed, <= 0
		TotalObligationAmount   float64
		GrossPositiveObligation float64
		TotalOutlayed           float64
		FirstNegativeDate       time.Time // zero when no de-obligation occurred
		FirstActionDate         time.Time
		LastActionDate          time.Time

		Label            Label
		Explanation      string
		PctOutlayedOfPos float64
	}

	// CountyDemographics is one row of the external county reference table.
	// Pointer fields are nil when the source value was missing or
	// unparseable, so join misses and gaps survive into the exports.
	CountyDemographics struct {
		FIPS        string
		Name        string
		Population  *float64
		PctMinority *float64
		PctBlack    *float64
		PctHispanic *float64
		PctAsian    *float64
	}
)

// Labels lists all classification outcomes in a stable order.
func Labels() []Label {
	return []Label{
		LabelCancellation,
		LabelRescission,
		LabelPartialResCumPos,
		LabelAdminOrPrepayAdj,
		LabelNoDeobligation,
	}
}

// Valid reports whether l is one of the five known outcomes.
func (l Label) Valid() bool {
	switch l {
	case LabelCancellation, LabelRescission, LabelPartialResCumPos,
		LabelAdminOrPrepayAdj, LabelNoDeobligation:
		return true
	}
	return false
}
