package ingest

import (
	"errors"
	"strings"
	"testing"
)

const sampleExtract = `assistance_award_unique_key,award_id_fain,action_date,federal_action_obligation,total_outlayed_amount_for_overall_award,recipient_name,recipient_county_name
KEY-1,FAIN-1,2024-06-01,1000,0,Acme Research,MIDDLESEX
KEY-1,FAIN-1,2025-02-01,-250,400,Acme Research,MIDDLESEX
,FAIN-2,2025-03-15,500,,Beacon Labs,SUFFOLK
,,2025-04-01,100,0,No Identity Inc,SUFFOLK
KEY-3,,not-a-date,oops,0,Coerced Corp,ESSEX
`

func TestReadTransactions(t *testing.T) {
	res, err := ReadTransactions(strings.NewReader(sampleExtract))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Degraded {
		t.Error("run should not be degraded with award-level columns present")
	}
	if res.HasRecipientLocation {
		t.Error("extract has no recipient city/state columns")
	}
	if len(res.Transactions) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(res.Transactions))
	}

	d := res.Diagnostics
	if d.RowsRead != 5 {
		t.Errorf("expected 5 rows read, got %d", d.RowsRead)
	}
	if d.RowsDropped != 1 {
		t.Errorf("expected 1 row dropped for empty identity, got %d", d.RowsDropped)
	}
	if d.CoercedDates != 1 {
		t.Errorf("expected 1 coerced date, got %d", d.CoercedDates)
	}
	if d.CoercedAmounts != 1 {
		t.Errorf("expected 1 coerced amount, got %d", d.CoercedAmounts)
	}
	if d.CoercedOutlays != 1 {
		t.Errorf("expected 1 coerced outlay, got %d", d.CoercedOutlays)
	}

	// Row 3 falls through to the FAIN candidate.
	if got := res.Transactions[2].AwardID; got != "FAIN-2" {
		t.Errorf("expected fallback to award_id_fain, got %q", got)
	}

	// Coerced row keeps safe defaults.
	last := res.Transactions[3]
	if last.AwardID != "KEY-3" {
		t.Fatalf("unexpected award id %q", last.AwardID)
	}
	if !last.ActionDate.IsZero() {
		t.Error("unparseable date should coerce to the zero time")
	}
	if last.Obligation != 0 {
		t.Errorf("unparseable amount should coerce to 0, got %v", last.Obligation)
	}
}

func TestReadTransactionsIdentityDeterminism(t *testing.T) {
	a, err := ReadTransactions(strings.NewReader(sampleExtract))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ReadTransactions(strings.NewReader(sampleExtract))
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Transactions) != len(b.Transactions) {
		t.Fatalf("row counts differ: %d vs %d", len(a.Transactions), len(b.Transactions))
	}
	for i := range a.Transactions {
		if a.Transactions[i].AwardID != b.Transactions[i].AwardID {
			t.Errorf("row %d resolved differently: %q vs %q",
				i, a.Transactions[i].AwardID, b.Transactions[i].AwardID)
		}
	}
}

func TestReadTransactionsSchemaViolations(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		wantErr error
	}{
		{
			name:    "no date column",
			header:  "assistance_award_unique_key,federal_action_obligation",
			wantErr: ErrMissingDateColumn,
		},
		{
			name:    "no obligation column",
			header:  "assistance_award_unique_key,action_date",
			wantErr: ErrMissingObligationColumn,
		},
		{
			name:    "no identifier columns at all",
			header:  "action_date,federal_action_obligation,recipient_name",
			wantErr: ErrNoIdentifierColumns,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTransactions(strings.NewReader(tc.header + "\n"))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReadTransactionsDegradedFallback(t *testing.T) {
	extract := "assistance_transaction_unique_key,action_date,federal_action_obligation\n" +
		"TX-1,2025-01-01,100\n" +
		"TX-2,2025-01-02,-50\n"

	res, err := ReadTransactions(strings.NewReader(extract))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded mode with only transaction-level keys")
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(res.Transactions))
	}
	if res.Transactions[0].AwardID != "TX-1" || res.Transactions[1].AwardID != "TX-2" {
		t.Error("transaction keys should become award ids in degraded mode")
	}
}

func TestReadTransactionsTrimsHeaderNames(t *testing.T) {
	extract := " assistance_award_unique_key , action_date ,federal_action_obligation\n" +
		"KEY-1,2025-01-01,42\n"

	res, err := ReadTransactions(strings.NewReader(extract))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(res.Transactions))
	}
	if res.Transactions[0].Obligation != 42 {
		t.Errorf("expected obligation 42, got %v", res.Transactions[0].Obligation)
	}
}

func TestReadTransactionsDetectsRecipientLocation(t *testing.T) {
	extract := "assistance_award_unique_key,action_date,federal_action_obligation,recipient_city_name,recipient_state_code\n" +
		"KEY-1,2025-01-01,42,BOSTON,MA\n"

	res, err := ReadTransactions(strings.NewReader(extract))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasRecipientLocation {
		t.Error("expected recipient city/state columns to be detected")
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in     string
		out    float64
		parsed bool
	}{
		{"100", 100, true},
		{"-250.75", -250.75, true},
		{"1,234,567.89", 1234567.89, true},
		{"$500", 500, true},
		{" 42 ", 42, true},
		{"0", 0, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, parsed := parseAmount(tc.in)
		if parsed != tc.parsed || got != tc.out {
			t.Errorf("parseAmount(%q) = (%v, %v), want (%v, %v)",
				tc.in, got, parsed, tc.out, tc.parsed)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in     string
		parsed bool
	}{
		{"2025-01-20", true},
		{"2025-01-20T00:00:00", true},
		{"01/20/2025", true},
		{"", false},
		{"20-01-2025", false},
		{"soon", false},
	}
	for _, tc := range cases {
		got, parsed := parseDate(tc.in)
		if parsed != tc.parsed {
			t.Errorf("parseDate(%q) parsed=%v, want %v", tc.in, parsed, tc.parsed)
		}
		if parsed && got.IsZero() {
			t.Errorf("parseDate(%q) returned zero time for a parsed value", tc.in)
		}
	}
}
