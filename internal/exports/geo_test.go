package exports

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"grantcuts/internal/core"
)

func f64(v float64) *float64 { return &v }

func TestBuildGeoAggregation(t *testing.T) {
	post := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	txs := []core.Transaction{
		{AwardID: "A", ActionDate: post, Obligation: -100, RecipientCounty: "MIDDLESEX"},
		{AwardID: "B", ActionDate: post, Obligation: -50, RecipientCounty: "MIDDLESEX"},
		{AwardID: "B", ActionDate: post, Obligation: -25, RecipientCounty: "MIDDLESEX"},
		{AwardID: "C", ActionDate: post, Obligation: -10, RecipientCounty: "UNMAPPED"},
		{AwardID: "D", ActionDate: post, Obligation: 500, RecipientCounty: "MIDDLESEX"},
	}
	lookup := []core.CountyDemographics{
		{FIPS: "25017", Name: "MIDDLESEX", Population: f64(1600000), PctMinority: f64(35)},
	}

	rows := BuildGeoAggregation(txs, lookup)
	if len(rows) != 2 {
		t.Fatalf("expected 2 county rows, got %d", len(rows))
	}

	mx := rows[0]
	if mx.RecipientCounty != "MIDDLESEX" {
		t.Fatalf("expected MIDDLESEX first, got %s", mx.RecipientCounty)
	}
	if mx.DeobligatedAmountUSD != 175 {
		t.Errorf("dollars = %v, want 175", mx.DeobligatedAmountUSD)
	}
	if mx.AwardsWithAnyCut != 2 {
		t.Errorf("awards with cut = %d, want 2 (A and B)", mx.AwardsWithAnyCut)
	}
	if mx.CountyFIPS != "25017" || mx.PctMinority == nil {
		t.Errorf("demographics not joined: %+v", mx)
	}
	if mx.DeobDollarsPerCapita == nil || *mx.DeobDollarsPerCapita != 175.0/1600000 {
		t.Errorf("per-capita = %v", mx.DeobDollarsPerCapita)
	}
	if mx.CutsPer10kResidents == nil || *mx.CutsPer10kResidents != 2.0/1600000*10000 {
		t.Errorf("per-10k = %v", mx.CutsPer10kResidents)
	}

	// Join miss keeps the dollars and leaves demographics nil.
	un := rows[1]
	if un.RecipientCounty != "UNMAPPED" || un.DeobligatedAmountUSD != 10 {
		t.Fatalf("unmatched county row = %+v", un)
	}
	if un.Population != nil || un.DeobDollarsPerCapita != nil || un.PctMinority != nil {
		t.Error("join miss must leave demographic fields nil")
	}
}

func TestBuildGeoAggregationNeverDropsCounties(t *testing.T) {
	txs := []core.Transaction{
		{AwardID: "A", Obligation: -1, RecipientCounty: "ALPHA"},
		{AwardID: "B", Obligation: -1, RecipientCounty: "BETA"},
		{AwardID: "C", Obligation: -1, RecipientCounty: "GAMMA"},
	}

	// Empty lookup: every county is a join miss, none may disappear.
	rows := BuildGeoAggregation(txs, nil)
	if len(rows) != 3 {
		t.Fatalf("left join dropped counties: got %d rows", len(rows))
	}
}

func TestExportsAreByteIdempotent(t *testing.T) {
	post := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	txs, snaps := classified(t, []core.Transaction{
		sampleTx("A", 0, post, 1000, 400),
		sampleTx("A", 1, post.AddDate(0, 1, 0), -250, 400),
		sampleTx("B", 2, post, 500, 0),
	})
	lookup := []core.CountyDemographics{
		{FIPS: "25017", Name: "MIDDLESEX", Population: f64(1600000)},
	}

	dir := t.TempDir()
	write := func(tag string) [3][]byte {
		awardsPath := filepath.Join(dir, "awards_"+tag+".csv")
		deobPath := filepath.Join(dir, "deob_"+tag+".csv")
		geoPath := filepath.Join(dir, "geo_"+tag+".csv")

		if err := WriteAwardsCSV(awardsPath, BuildAwardsMaster(txs, snaps, cutoff)); err != nil {
			t.Fatal(err)
		}
		deob := BuildDeobligations(txs, snaps, cutoff)
		if err := WriteDeobligationsCSV(deobPath, deob); err != nil {
			t.Fatal(err)
		}
		if err := WriteGeoCSV(geoPath, BuildGeoAggregation(txs, lookup)); err != nil {
			t.Fatal(err)
		}

		var out [3][]byte
		for i, p := range []string{awardsPath, deobPath, geoPath} {
			b, err := os.ReadFile(p)
			if err != nil {
				t.Fatal(err)
			}
			if len(b) == 0 {
				t.Fatalf("%s is empty", p)
			}
			out[i] = b
		}
		return out
	}

	first := write("one")
	second := write("two")
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Errorf("export %d not byte-identical across runs", i)
		}
	}
}
