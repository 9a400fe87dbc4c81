// Package core holds the award domain model and the outcome classifier.
//
// Classification is a pure decision over an award's final trajectory state:
// it never looks at individual transactions, only at the snapshot signals
// computed by the trajectory builder.
package core

import (
	"fmt"
	"time"
)

const explainDateLayout = "2006-01-02"

// Classify maps an award's final state to its outcome label and a short
// rationale sentence. The first matching branch wins; every input maps to
// exactly one label.
//
// Magnitude is deliberately ignored: a 1% and a 99% partial clawback both
// land in PARTIAL_RES_CUM_POS. The split is by direction of the final state,
// not by size of the cut.
func Classify(finalCumObligation, totalOutlayed float64, anyNegative bool) (Label, string) {
	if finalCumObligation <= 0 {
		if totalOutlayed > 0 {
			return LabelRescission,
				"Funds were disbursed and later clawed back, reducing the award to zero or below."
		}
		return LabelCancellation,
			"No funds were disbursed; the award's cumulative obligation dropped to zero."
	}
	if anyNegative && totalOutlayed > 0 {
		return LabelPartialResCumPos,
			"Funds were disbursed and some portion was clawed back, but the award remains positive."
	}
	if anyNegative && totalOutlayed == 0 {
		return LabelAdminOrPrepayAdj,
			"No funds were disbursed; negative transactions occurred but the award remains positive."
	}
	return LabelNoDeobligation,
		"No negative transactions observed for this award."
}

// ClassifySnapshot fills Label, Explanation and PctOutlayedOfPos on s from
// its trajectory signals. The explanation embeds the signal values and the
// matched branch's rationale and is byte-reproducible from the same inputs.
func ClassifySnapshot(s *AwardSnapshot) {
	label, rationale := Classify(s.FinalCumObligation, s.TotalOutlayed, s.AnyNegative)

	pct := 0.0
	if s.GrossPositiveObligation > 0 {
		pct = s.TotalOutlayed / s.GrossPositiveObligation
	}

	s.Label = label
	s.PctOutlayedOfPos = pct
	s.Explanation = fmt.Sprintf(
		"%s | final_cum=%.2f, outlays=%.2f (%.1f%% of positives), total_neg=%.2f, first_neg=%s, %s",
		label,
		s.FinalCumObligation,
		s.TotalOutlayed,
		pct*100,
		abs(s.TotalNegativeAmount),
		formatExplainDate(s.FirstNegativeDate),
		rationale,
	)
}

func formatExplainDate(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format(explainDateLayout)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
