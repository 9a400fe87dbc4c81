package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"grantcuts/internal/core"
	"grantcuts/internal/exports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "grantcuts.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testAwardRow(id string, label core.Label, agency string) exports.AwardRow {
	return exports.AwardRow{
		AwardID:              id,
		RecipientName:        "ACME RESEARCH",
		AwardingAgency:       agency,
		FinalCumObligation:   120,
		TotalDeobligationNeg: 30,
		Label:                label,
		Explanation:          "placeholder",
		FirstActionDate:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		LastActionDate:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PreTrumpFlag:         true,
		TrumpEraFlag:         true,
	}
}

func TestReplaceAwardsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []exports.AwardRow{
		testAwardRow("A-1", core.LabelPartialResCumPos, "NSF"),
		testAwardRow("A-2", core.LabelNoDeobligation, "NIH"),
	}
	if err := repo.ReplaceAwards(ctx, rows); err != nil {
		t.Fatalf("replace awards: %v", err)
	}

	got, err := repo.ListAwards(ctx, AwardFilter{})
	if err != nil {
		t.Fatalf("list awards: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 awards, got %d", len(got))
	}
	a := got[0]
	if a.AwardID != "A-1" || a.Label != "PARTIAL_RES_CUM_POS" || a.AwardingAgency != "NSF" {
		t.Errorf("unexpected first award: %+v", a)
	}
	if a.FirstActionDate != "2024-06-01" || a.LastActionDate != "2025-03-01" {
		t.Errorf("date formatting: first=%q last=%q", a.FirstActionDate, a.LastActionDate)
	}
	if a.FirstNegativeDate != "" {
		t.Errorf("zero date must store as empty string, got %q", a.FirstNegativeDate)
	}
	if !a.PreTrumpFlag || !a.TrumpEraFlag || a.TrumpCutFlag {
		t.Errorf("flags: %+v", a)
	}
}

func TestReplaceAwardsIsReplaceAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := []exports.AwardRow{
		testAwardRow("OLD-1", core.LabelCancellation, "NSF"),
		testAwardRow("OLD-2", core.LabelRescission, "NSF"),
	}
	if err := repo.ReplaceAwards(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := []exports.AwardRow{testAwardRow("NEW-1", core.LabelNoDeobligation, "NIH")}
	if err := repo.ReplaceAwards(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListAwards(ctx, AwardFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].AwardID != "NEW-1" {
		t.Fatalf("replace must drop previous rows, got %+v", got)
	}
}

func TestListAwardsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []exports.AwardRow{
		testAwardRow("A-1", core.LabelRescission, "NSF"),
		testAwardRow("A-2", core.LabelCancellation, "NSF"),
		testAwardRow("A-3", core.LabelRescission, "NIH"),
	}
	if err := repo.ReplaceAwards(ctx, rows); err != nil {
		t.Fatal(err)
	}

	byLabel, err := repo.ListAwards(ctx, AwardFilter{Labels: []string{"RESCISSION"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(byLabel) != 2 {
		t.Errorf("label filter: expected 2, got %d", len(byLabel))
	}

	byAgency, err := repo.ListAwards(ctx, AwardFilter{Agency: "NIH"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byAgency) != 1 || byAgency[0].AwardID != "A-3" {
		t.Errorf("agency filter: %+v", byAgency)
	}

	partial, err := repo.ListAwards(ctx, AwardFilter{Agency: "NS"})
	if err != nil {
		t.Fatal(err)
	}
	if len(partial) != 2 {
		t.Errorf("agency substring filter: expected 2, got %d", len(partial))
	}

	both, err := repo.ListAwards(ctx, AwardFilter{Labels: []string{"RESCISSION"}, Agency: "NSF"})
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 1 || both[0].AwardID != "A-1" {
		t.Errorf("combined filter: %+v", both)
	}

	limited, err := repo.ListAwards(ctx, AwardFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit: expected 2, got %d", len(limited))
	}
}

func TestReplaceTransactionsAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []exports.DeobRow{
		{
			AwardID:              "A-1",
			ActionDate:           time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Obligation:           -75,
			DeobligatedAmountUSD: 75,
			Label:                core.LabelRescission,
			RecipientCity:        "BOSTON",
			RecipientState:       "MA",
			TrumpEraFlag:         true,
		},
		{
			AwardID:              "A-2",
			ActionDate:           time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Obligation:           -10,
			DeobligatedAmountUSD: 10,
			Label:                core.LabelAdminOrPrepayAdj,
		},
	}
	if err := repo.ReplaceTransactions(ctx, rows); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListDeobTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	// Listing orders by action date.
	if got[0].AwardID != "A-2" || got[1].AwardID != "A-1" {
		t.Errorf("date ordering: %s, %s", got[0].AwardID, got[1].AwardID)
	}
	if got[1].DeobligatedAmountUSD != 75 || !got[1].TrumpEraFlag {
		t.Errorf("row values: %+v", got[1])
	}
}

func TestReplaceGeoKeepsNilDemographics(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	pop := 1600000.0
	perCapita := 175.0 / pop
	rows := []exports.GeoRow{
		{
			RecipientCounty:      "MIDDLESEX",
			CountyFIPS:           "25017",
			CountyName:           "MIDDLESEX",
			DeobligatedAmountUSD: 175,
			AwardsWithAnyCut:     2,
			Population:           &pop,
			DeobDollarsPerCapita: &perCapita,
		},
		{
			RecipientCounty:      "UNMAPPED",
			DeobligatedAmountUSD: 10,
			AwardsWithAnyCut:     1,
		},
	}
	if err := repo.ReplaceGeo(ctx, rows); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ListCounties(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 counties, got %d", len(got))
	}
	mx := got[0]
	if mx.Population == nil || *mx.Population != pop {
		t.Errorf("population round trip: %v", mx.Population)
	}
	if mx.DeobDollarsPerCapita == nil || *mx.DeobDollarsPerCapita != perCapita {
		t.Errorf("per-capita round trip: %v", mx.DeobDollarsPerCapita)
	}
	un := got[1]
	if un.Population != nil || un.PctMinority != nil {
		t.Errorf("join miss must stay NULL: %+v", un)
	}
}

func TestSummaryByLabel(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := []exports.AwardRow{
		testAwardRow("A-1", core.LabelRescission, "NSF"),
		testAwardRow("A-2", core.LabelRescission, "NIH"),
		testAwardRow("A-3", core.LabelNoDeobligation, "NSF"),
	}
	if err := repo.ReplaceAwards(ctx, rows); err != nil {
		t.Fatal(err)
	}

	summaries, err := repo.SummaryByLabel(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(summaries))
	}
	// Ordered by label: NO_DEOBLIGATION before RESCISSION.
	if summaries[0].Label != "NO_DEOBLIGATION" || summaries[0].Awards != 1 {
		t.Errorf("first summary: %+v", summaries[0])
	}
	if summaries[1].Label != "RESCISSION" || summaries[1].Awards != 2 {
		t.Errorf("second summary: %+v", summaries[1])
	}
	if summaries[1].TotalDeobligationNeg != 60 {
		t.Errorf("summed deobligation: %v", summaries[1].TotalDeobligationNeg)
	}
}

func TestRecordRunAndLatestRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.LatestRun(ctx); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("empty table should surface sql.ErrNoRows, got %v", err)
	}

	runs := []PipelineRun{
		{RunID: "run-1", StartedAt: "2026-08-29T10:00:00Z", FinishedAt: "2026-08-29T10:01:00Z", RowsRead: 100, AwardsTotal: 10},
		{RunID: "run-2", StartedAt: "2026-08-29T11:00:00Z", FinishedAt: "2026-08-29T11:02:00Z", RowsRead: 120, AwardsTotal: 12, Degraded: true},
	}
	for _, run := range runs {
		if err := repo.RecordRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.RunID != "run-2" || !latest.Degraded || latest.RowsRead != 120 {
		t.Errorf("latest run: %+v", latest)
	}
}
