package exports

import (
	"testing"
	"time"

	"grantcuts/internal/core"
)

func TestBuildDeobligations(t *testing.T) {
	pre := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	post := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	txs, snaps := classified(t, []core.Transaction{
		sampleTx("A", 0, pre, 1000, 400),
		sampleTx("A", 1, post, -250, 400),
		sampleTx("B", 2, pre, 500, 0),
		sampleTx("B", 3, pre, -100, 0),
	})

	rows := BuildDeobligations(txs, snaps, cutoff)
	if len(rows) != 2 {
		t.Fatalf("expected 2 de-obligation rows, got %d", len(rows))
	}

	a := rows[0]
	if a.AwardID != "A" || a.Obligation != -250 || a.DeobligatedAmountUSD != 250 {
		t.Errorf("row A = %+v", a)
	}
	if a.Label != core.LabelPartialResCumPos {
		t.Errorf("row A label = %s", a.Label)
	}
	if !a.TrumpEraFlag {
		t.Error("post-cutoff transaction should carry the era flag")
	}

	b := rows[1]
	if b.AwardID != "B" || b.TrumpEraFlag {
		t.Errorf("row B = %+v", b)
	}
	if b.Label != core.LabelAdminOrPrepayAdj {
		t.Errorf("row B label = %s, want ADMIN_OR_PREPAY_ADJ", b.Label)
	}
}

func TestBuildCityMonth(t *testing.T) {
	rows := []DeobRow{
		{ActionDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), RecipientCity: "BOSTON", RecipientState: "MA", TrumpEraFlag: true, DeobligatedAmountUSD: 100},
		{ActionDate: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), RecipientCity: "BOSTON", RecipientState: "MA", TrumpEraFlag: true, DeobligatedAmountUSD: 50},
		{ActionDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), RecipientCity: "BOSTON", RecipientState: "MA", TrumpEraFlag: true, DeobligatedAmountUSD: 25},
		{ActionDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), RecipientCity: "ALBANY", RecipientState: "NY", TrumpEraFlag: true, DeobligatedAmountUSD: 10},
		{ActionDate: time.Time{}, RecipientCity: "NOWHERE", RecipientState: "XX", DeobligatedAmountUSD: 999},
	}

	out := BuildCityMonth(rows)
	if len(out) != 3 {
		t.Fatalf("expected 3 buckets, got %d: %+v", len(out), out)
	}

	first := out[0]
	if first.City != "ALBANY" || first.DeobligatedAmountUSD != 10 {
		t.Errorf("first bucket = %+v", first)
	}
	second := out[1]
	if second.City != "BOSTON" || second.DeobligatedAmountUSD != 150 {
		t.Errorf("second bucket = %+v", second)
	}
	if got := second.Month; got != time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("month not truncated: %v", got)
	}
	third := out[2]
	if third.Month != time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) || third.DeobligatedAmountUSD != 25 {
		t.Errorf("third bucket = %+v", third)
	}
}

func TestCityStatePairs(t *testing.T) {
	rows := []DeobRow{
		{RecipientCity: "BOSTON", RecipientState: "MA"},
		{RecipientCity: "BOSTON", RecipientState: "MA"},
		{RecipientCity: "ALBANY", RecipientState: "NY"},
		{RecipientCity: "", RecipientState: "MA"},
		{RecipientCity: "SALEM", RecipientState: ""},
	}

	pairs := CityStatePairs(rows)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(pairs), pairs)
	}
	if pairs[0] != (CityState{"ALBANY", "NY"}) || pairs[1] != (CityState{"BOSTON", "MA"}) {
		t.Errorf("pairs = %+v", pairs)
	}
}
