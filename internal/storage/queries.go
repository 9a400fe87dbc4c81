package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the same queries run inside
// and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Award mirrors one awards_master row. Dates are ISO strings, empty when
// the underlying transaction had no usable date.
type Award struct {
	AwardID                 string
	RecipientName           string
	CFDANumber              string
	CFDATitle               string
	AwardingAgency          string
	FundingAgency           string
	FinalCumObligation      float64
	TotalNegativeAmount     float64
	TotalObligationAmount   float64
	TotalObligationPos      float64
	TotalDeobligationNeg    float64
	TotalOutlayed           float64
	GrossPositiveObligation float64
	Label                   string
	Explanation             string
	PctOutlayedOfPos        float64
	FirstNegativeDate       string
	FirstActionDate         string
	LastActionDate          string
	PreTrumpFlag            bool
	TrumpEraFlag            bool
	TrumpCutFlag            bool
}

// DeobTransaction mirrors one transactions_deob row.
type DeobTransaction struct {
	ID                      int64
	AwardID                 string
	ActionDate              string
	Obligation              float64
	DeobligatedAmountUSD    float64
	Label                   string
	ActionTypeCode          string
	ActionTypeDescription   string
	CorrectionIndicatorCode string
	CorrectionIndicatorDesc string
	RecipientName           string
	RecipientCity           string
	RecipientState          string
	PlaceOfPerformanceCity  string
	PlaceOfPerformanceState string
	TrumpEraFlag            bool
}

// County mirrors one geo_aggregation row. Nullable columns stay nil when
// the demographic join missed.
type County struct {
	RecipientCounty      string
	CountyFIPS           string
	CountyName           string
	DeobligatedAmountUSD float64
	AwardsWithAnyCut     int64
	Population           *float64
	DeobDollarsPerCapita *float64
	CutsPer10kResidents  *float64
	PctMinority          *float64
	PctBlack             *float64
	PctHispanic          *float64
	PctAsian             *float64
}

type LabelSummary struct {
	Label                string
	Awards               int64
	TotalDeobligationNeg float64
}

type PipelineRun struct {
	RunID         string
	StartedAt     string
	FinishedAt    string
	InputPath     string
	RowsRead      int64
	RowsDropped   int64
	CoercedValues int64
	AwardsTotal   int64
	Degraded      bool
}

const insertAward = `
INSERT INTO awards_master (
    award_id, recipient_name, cfda_number, cfda_title,
    awarding_agency, funding_agency,
    final_cum_obligation, total_negative_amount, total_obligation_amount,
    total_obligation_pos, total_deobligation_neg, total_outlayed,
    gross_positive_obligation, label, explanation, pct_outlayed_of_pos,
    first_negative_date, first_action_date, last_action_date,
    pre_trump_flag, trump_era_flag, trump_cut_flag
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertAward(ctx context.Context, a Award) error {
	_, err := q.db.ExecContext(ctx, insertAward,
		a.AwardID, a.RecipientName, a.CFDANumber, a.CFDATitle,
		a.AwardingAgency, a.FundingAgency,
		a.FinalCumObligation, a.TotalNegativeAmount, a.TotalObligationAmount,
		a.TotalObligationPos, a.TotalDeobligationNeg, a.TotalOutlayed,
		a.GrossPositiveObligation, a.Label, a.Explanation, a.PctOutlayedOfPos,
		a.FirstNegativeDate, a.FirstActionDate, a.LastActionDate,
		a.PreTrumpFlag, a.TrumpEraFlag, a.TrumpCutFlag)
	return err
}

const insertDeobTransaction = `
INSERT INTO transactions_deob (
    award_id, action_date, obligation, deobligated_amount_usd, label,
    action_type_code, action_type_description,
    correction_indicator_code, correction_indicator_desc,
    recipient_name, recipient_city, recipient_state,
    pop_city, pop_state, trump_era_flag
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertDeobTransaction(ctx context.Context, t DeobTransaction) error {
	_, err := q.db.ExecContext(ctx, insertDeobTransaction,
		t.AwardID, t.ActionDate, t.Obligation, t.DeobligatedAmountUSD, t.Label,
		t.ActionTypeCode, t.ActionTypeDescription,
		t.CorrectionIndicatorCode, t.CorrectionIndicatorDesc,
		t.RecipientName, t.RecipientCity, t.RecipientState,
		t.PlaceOfPerformanceCity, t.PlaceOfPerformanceState, t.TrumpEraFlag)
	return err
}

const insertCounty = `
INSERT INTO geo_aggregation (
    recipient_county, county_fips, county_name,
    deobligated_amount_usd, awards_with_any_cut,
    population, deob_dollars_per_capita, cuts_per_10k_residents,
    pct_minority, pct_black, pct_hispanic, pct_asian
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertCounty(ctx context.Context, c County) error {
	_, err := q.db.ExecContext(ctx, insertCounty,
		c.RecipientCounty, c.CountyFIPS, c.CountyName,
		c.DeobligatedAmountUSD, c.AwardsWithAnyCut,
		c.Population, c.DeobDollarsPerCapita, c.CutsPer10kResidents,
		c.PctMinority, c.PctBlack, c.PctHispanic, c.PctAsian)
	return err
}

const insertPipelineRun = `
INSERT INTO pipeline_runs (
    run_id, started_at, finished_at, input_path,
    rows_read, rows_dropped, coerced_values, awards_total, degraded
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertPipelineRun(ctx context.Context, r PipelineRun) error {
	_, err := q.db.ExecContext(ctx, insertPipelineRun,
		r.RunID, r.StartedAt, r.FinishedAt, r.InputPath,
		r.RowsRead, r.RowsDropped, r.CoercedValues, r.AwardsTotal, r.Degraded)
	return err
}

// AwardFilter narrows ListAwards. Zero values mean "no filter". Era is
// "pre", "trump" or "" for all.
type AwardFilter struct {
	Labels []string
	Agency string
	Era    string
	Limit  int64
}

const listAwards = `
SELECT award_id, recipient_name, cfda_number, cfda_title,
       awarding_agency, funding_agency,
       final_cum_obligation, total_negative_amount, total_obligation_amount,
       total_obligation_pos, total_deobligation_neg, total_outlayed,
       gross_positive_obligation, label, explanation, pct_outlayed_of_pos,
       first_negative_date, first_action_date, last_action_date,
       pre_trump_flag, trump_era_flag, trump_cut_flag
FROM awards_master
`

func (q *Queries) ListAwards(ctx context.Context, f AwardFilter) ([]Award, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(f.Labels) > 0 {
		placeholders := make([]string, len(f.Labels))
		for i, l := range f.Labels {
			placeholders[i] = "?"
			args = append(args, l)
		}
		conds = append(conds, "label IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.Agency != "" {
		conds = append(conds, "awarding_agency LIKE ?")
		args = append(args, "%"+f.Agency+"%")
	}
	switch f.Era {
	case "pre":
		conds = append(conds, "pre_trump_flag = 1")
	case "trump":
		conds = append(conds, "trump_era_flag = 1")
	}

	query := listAwards
	if len(conds) > 0 {
		query += "WHERE " + strings.Join(conds, " AND ") + "\n"
	}
	query += "ORDER BY award_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []Award
	for rows.Next() {
		var a Award
		if err := rows.Scan(
			&a.AwardID, &a.RecipientName, &a.CFDANumber, &a.CFDATitle,
			&a.AwardingAgency, &a.FundingAgency,
			&a.FinalCumObligation, &a.TotalNegativeAmount, &a.TotalObligationAmount,
			&a.TotalObligationPos, &a.TotalDeobligationNeg, &a.TotalOutlayed,
			&a.GrossPositiveObligation, &a.Label, &a.Explanation, &a.PctOutlayedOfPos,
			&a.FirstNegativeDate, &a.FirstActionDate, &a.LastActionDate,
			&a.PreTrumpFlag, &a.TrumpEraFlag, &a.TrumpCutFlag,
		); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}

const listDeobTransactions = `
SELECT id, award_id, action_date, obligation, deobligated_amount_usd, label,
       action_type_code, action_type_description,
       correction_indicator_code, correction_indicator_desc,
       recipient_name, recipient_city, recipient_state,
       pop_city, pop_state, trump_era_flag
FROM transactions_deob
ORDER BY action_date, award_id, id
`

func (q *Queries) ListDeobTransactions(ctx context.Context) ([]DeobTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listDeobTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []DeobTransaction
	for rows.Next() {
		var t DeobTransaction
		if err := rows.Scan(
			&t.ID, &t.AwardID, &t.ActionDate, &t.Obligation, &t.DeobligatedAmountUSD, &t.Label,
			&t.ActionTypeCode, &t.ActionTypeDescription,
			&t.CorrectionIndicatorCode, &t.CorrectionIndicatorDesc,
			&t.RecipientName, &t.RecipientCity, &t.RecipientState,
			&t.PlaceOfPerformanceCity, &t.PlaceOfPerformanceState, &t.TrumpEraFlag,
		); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

const listCounties = `
SELECT recipient_county, county_fips, county_name,
       deobligated_amount_usd, awards_with_any_cut,
       population, deob_dollars_per_capita, cuts_per_10k_residents,
       pct_minority, pct_black, pct_hispanic, pct_asian
FROM geo_aggregation
ORDER BY recipient_county
`

func (q *Queries) ListCounties(ctx context.Context) ([]County, error) {
	rows, err := q.db.QueryContext(ctx, listCounties)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counties []County
	for rows.Next() {
		var c County
		if err := rows.Scan(
			&c.RecipientCounty, &c.CountyFIPS, &c.CountyName,
			&c.DeobligatedAmountUSD, &c.AwardsWithAnyCut,
			&c.Population, &c.DeobDollarsPerCapita, &c.CutsPer10kResidents,
			&c.PctMinority, &c.PctBlack, &c.PctHispanic, &c.PctAsian,
		); err != nil {
			return nil, err
		}
		counties = append(counties, c)
	}
	return counties, rows.Err()
}

const summaryByLabel = `
SELECT label, COUNT(*), COALESCE(SUM(total_deobligation_neg), 0)
FROM awards_master
GROUP BY label
ORDER BY label
`

func (q *Queries) SummaryByLabel(ctx context.Context) ([]LabelSummary, error) {
	rows, err := q.db.QueryContext(ctx, summaryByLabel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []LabelSummary
	for rows.Next() {
		var s LabelSummary
		if err := rows.Scan(&s.Label, &s.Awards, &s.TotalDeobligationNeg); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

const latestRun = `
SELECT run_id, started_at, finished_at, input_path,
       rows_read, rows_dropped, coerced_values, awards_total, degraded
FROM pipeline_runs
ORDER BY finished_at DESC
LIMIT 1
`

func (q *Queries) LatestRun(ctx context.Context) (PipelineRun, error) {
	var r PipelineRun
	err := q.db.QueryRowContext(ctx, latestRun).Scan(
		&r.RunID, &r.StartedAt, &r.FinishedAt, &r.InputPath,
		&r.RowsRead, &r.RowsDropped, &r.CoercedValues, &r.AwardsTotal, &r.Degraded)
	return r, err
}

const deleteAwards = `DELETE FROM awards_master`
const deleteDeobTransactions = `DELETE FROM transactions_deob`
const deleteCounties = `DELETE FROM geo_aggregation`

func (q *Queries) DeleteAwards(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAwards)
	return err
}

func (q *Queries) DeleteDeobTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteDeobTransactions)
	return err
}

func (q *Queries) DeleteCounties(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteCounties)
	return err
}
