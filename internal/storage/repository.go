package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"grantcuts/internal/exports"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceAwards swaps the awards master for the given rows in one
// transaction, so readers never observe a half-loaded table.
func (r *SQLiteRepository) ReplaceAwards(ctx context.Context, rows []exports.AwardRow) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteAwards(ctx); err != nil {
			return fmt.Errorf("clear awards: %w", err)
		}
		for _, row := range rows {
			if err := q.InsertAward(ctx, awardFromExport(row)); err != nil {
				return fmt.Errorf("insert award %s: %w", row.AwardID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Awards master replaced", "awards", len(rows))
	return nil
}

// ReplaceTransactions swaps the de-obligation transaction table.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, rows []exports.DeobRow) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteDeobTransactions(ctx); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		for _, row := range rows {
			if err := q.InsertDeobTransaction(ctx, deobFromExport(row)); err != nil {
				return fmt.Errorf("insert transaction for %s: %w", row.AwardID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "De-obligation transactions replaced", "transactions", len(rows))
	return nil
}

// ReplaceGeo swaps the county aggregation table.
func (r *SQLiteRepository) ReplaceGeo(ctx context.Context, rows []exports.GeoRow) error {
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteCounties(ctx); err != nil {
			return fmt.Errorf("clear counties: %w", err)
		}
		for _, row := range rows {
			if err := q.InsertCounty(ctx, countyFromExport(row)); err != nil {
				return fmt.Errorf("insert county %s: %w", row.RecipientCounty, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Geo aggregation replaced", "counties", len(rows))
	return nil
}

// RecordRun appends one pipeline run to the audit table.
func (r *SQLiteRepository) RecordRun(ctx context.Context, run PipelineRun) error {
	if err := r.queries.InsertPipelineRun(ctx, run); err != nil {
		return fmt.Errorf("record pipeline run: %w", err)
	}

	slog.InfoContext(ctx, "Pipeline run recorded",
		"run_id", run.RunID,
		"rows_read", run.RowsRead,
		"awards", run.AwardsTotal,
		"degraded", run.Degraded)
	return nil
}

func (r *SQLiteRepository) ListAwards(ctx context.Context, f AwardFilter) ([]Award, error) {
	awards, err := r.queries.ListAwards(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	return awards, nil
}

func (r *SQLiteRepository) ListDeobTransactions(ctx context.Context) ([]DeobTransaction, error) {
	txs, err := r.queries.ListDeobTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLiteRepository) ListCounties(ctx context.Context) ([]County, error) {
	counties, err := r.queries.ListCounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list counties: %w", err)
	}
	return counties, nil
}

func (r *SQLiteRepository) SummaryByLabel(ctx context.Context) ([]LabelSummary, error) {
	summaries, err := r.queries.SummaryByLabel(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary by label: %w", err)
	}
	return summaries, nil
}

// LatestRun returns the most recent pipeline run. The wrapped error is
// sql.ErrNoRows when the pipeline has never run against this database.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (PipelineRun, error) {
	run, err := r.queries.LatestRun(ctx)
	if err != nil {
		return PipelineRun{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func awardFromExport(row exports.AwardRow) Award {
	return Award{
		AwardID:                 row.AwardID,
		RecipientName:           row.RecipientName,
		CFDANumber:              row.CFDANumber,
		CFDATitle:               row.CFDATitle,
		AwardingAgency:          row.AwardingAgency,
		FundingAgency:           row.FundingAgency,
		FinalCumObligation:      row.FinalCumObligation,
		TotalNegativeAmount:     row.TotalNegativeAmount,
		TotalObligationAmount:   row.TotalObligationAmount,
		TotalObligationPos:      row.TotalObligationPos,
		TotalDeobligationNeg:    row.TotalDeobligationNeg,
		TotalOutlayed:           row.TotalOutlayed,
		GrossPositiveObligation: row.GrossPositiveObligation,
		Label:                   string(row.Label),
		Explanation:             row.Explanation,
		PctOutlayedOfPos:        row.PctOutlayedOfPos,
		FirstNegativeDate:       isoDate(row.FirstNegativeDate),
		FirstActionDate:         isoDate(row.FirstActionDate),
		LastActionDate:          isoDate(row.LastActionDate),
		PreTrumpFlag:            row.PreTrumpFlag,
		TrumpEraFlag:            row.TrumpEraFlag,
		TrumpCutFlag:            row.TrumpCutFlag,
	}
}

func deobFromExport(row exports.DeobRow) DeobTransaction {
	return DeobTransaction{
		AwardID:                 row.AwardID,
		ActionDate:              isoDate(row.ActionDate),
		Obligation:              row.Obligation,
		DeobligatedAmountUSD:    row.DeobligatedAmountUSD,
		Label:                   string(row.Label),
		ActionTypeCode:          row.ActionTypeCode,
		ActionTypeDescription:   row.ActionTypeDescription,
		CorrectionIndicatorCode: row.CorrectionIndicatorCode,
		CorrectionIndicatorDesc: row.CorrectionIndicatorDesc,
		RecipientName:           row.RecipientName,
		RecipientCity:           row.RecipientCity,
		RecipientState:          row.RecipientState,
		PlaceOfPerformanceCity:  row.PlaceOfPerformanceCity,
		PlaceOfPerformanceState: row.PlaceOfPerformanceState,
		TrumpEraFlag:            row.TrumpEraFlag,
	}
}

func countyFromExport(row exports.GeoRow) County {
	return County{
		RecipientCounty:      row.RecipientCounty,
		CountyFIPS:           row.CountyFIPS,
		CountyName:           row.CountyName,
		DeobligatedAmountUSD: row.DeobligatedAmountUSD,
		AwardsWithAnyCut:     int64(row.AwardsWithAnyCut),
		Population:           row.Population,
		DeobDollarsPerCapita: row.DeobDollarsPerCapita,
		CutsPer10kResidents:  row.CutsPer10kResidents,
		PctMinority:          row.PctMinority,
		PctBlack:             row.PctBlack,
		PctHispanic:          row.PctHispanic,
		PctAsian:             row.PctAsian,
	}
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
