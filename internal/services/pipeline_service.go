// Package services orchestrates the pipeline: ingest, trajectory build,
// classification, exports, persistence and the optional spreadsheet push.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"grantcuts/internal/core"
	"grantcuts/internal/exports"
	"grantcuts/internal/ingest"
	"grantcuts/internal/sheets"
	"grantcuts/internal/snapshot"
	"grantcuts/internal/storage"
)

// Export file names under the configured export directory.
const (
	AwardsMasterFile  = "trump_cuts_awards_master.csv"
	TransactionsFile  = "trump_cuts_transactions.csv"
	CityMonthFile     = "deob_by_city_month.csv"
	GeoFile           = "geo_county_aggregation.csv"
	awardsMasterSheet = "awards_master"
)

// PipelineConfig carries everything one run needs.
type PipelineConfig struct {
	InputCSVPath string
	DP05Path     string // optional; empty skips the demographic join
	ExportDir    string
	EraCutoff    time.Time
	Workers      int // trajectory build parallelism, 0 means GOMAXPROCS
}

// RunReport summarizes one completed pipeline run.
type RunReport struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Diagnostics ingest.Diagnostics
	Degraded    bool

	AwardsTotal      int
	DeobTransactions int
	Counties         int
	LabelCounts      map[core.Label]int
}

// PipelineService runs the export pipeline. The storage repository and
// table writer are both optional; a nil sink is skipped.
type PipelineService struct {
	config  PipelineConfig
	storage *storage.SQLiteRepository
	tables  sheets.TableWriter
}

func NewPipelineService(config PipelineConfig, repo *storage.SQLiteRepository, tables sheets.TableWriter) *PipelineService {
	return &PipelineService{
		config:  config,
		storage: repo,
		tables:  tables,
	}
}

// Run executes one full pipeline pass: read the extract, build per-award
// trajectories, classify, write the export tables, persist them, and push
// the awards master to the spreadsheet sink when one is configured.
func (s *PipelineService) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	slog.InfoContext(ctx, "Pipeline run starting",
		"run_id", report.RunID,
		"input", s.config.InputCSVPath)

	result, err := ingest.LoadTransactions(s.config.InputCSVPath)
	if err != nil {
		return report, fmt.Errorf("load transactions: %w", err)
	}
	result.Diagnostics.Log(ctx)
	report.Diagnostics = result.Diagnostics
	report.Degraded = result.Degraded
	if result.Degraded {
		slog.WarnContext(ctx, "Award identity resolution is degraded, falling back to transaction keys",
			"run_id", report.RunID)
	}

	var lookup []core.CountyDemographics
	if s.config.DP05Path != "" {
		lookup, err = ingest.LoadCountyLookup(s.config.DP05Path)
		if err != nil {
			return report, fmt.Errorf("load county lookup: %w", err)
		}
	}

	built, err := snapshot.Build(ctx, result.Transactions, s.config.Workers)
	if err != nil {
		return report, fmt.Errorf("build trajectories: %w", err)
	}

	report.LabelCounts = make(map[core.Label]int)
	for i := range built.Snapshots {
		core.ClassifySnapshot(&built.Snapshots[i])
		report.LabelCounts[built.Snapshots[i].Label]++
	}

	awards := exports.BuildAwardsMaster(built.Transactions, built.Snapshots, s.config.EraCutoff)
	deob := exports.BuildDeobligations(built.Transactions, built.Snapshots, s.config.EraCutoff)
	geo := exports.BuildGeoAggregation(built.Transactions, lookup)

	var cityMonth []exports.CityMonthRow
	if result.HasRecipientLocation {
		cityMonth = exports.BuildCityMonth(deob)
	} else {
		slog.WarnContext(ctx, "Extract has no recipient city/state columns, skipping city-month rollup",
			"run_id", report.RunID)
	}

	report.AwardsTotal = len(awards)
	report.DeobTransactions = len(deob)
	report.Counties = len(geo)

	if err := s.writeExports(awards, deob, cityMonth, geo, result.HasRecipientLocation); err != nil {
		return report, err
	}

	if err := s.persist(ctx, awards, deob, geo, &report); err != nil {
		return report, err
	}

	s.pushTables(ctx, awards)

	report.FinishedAt = time.Now()
	slog.InfoContext(ctx, "Pipeline run finished",
		"run_id", report.RunID,
		"awards", report.AwardsTotal,
		"deob_transactions", report.DeobTransactions,
		"counties", report.Counties,
		"duration", report.FinishedAt.Sub(report.StartedAt))

	return report, nil
}

func (s *PipelineService) writeExports(awards []exports.AwardRow, deob []exports.DeobRow, cityMonth []exports.CityMonthRow, geo []exports.GeoRow, withCityMonth bool) error {
	dir := s.config.ExportDir
	if err := exports.WriteAwardsCSV(filepath.Join(dir, AwardsMasterFile), awards); err != nil {
		return fmt.Errorf("write awards master: %w", err)
	}
	if err := exports.WriteDeobligationsCSV(filepath.Join(dir, TransactionsFile), deob); err != nil {
		return fmt.Errorf("write transactions: %w", err)
	}
	if withCityMonth {
		if err := exports.WriteCityMonthCSV(filepath.Join(dir, CityMonthFile), cityMonth); err != nil {
			return fmt.Errorf("write city-month rollup: %w", err)
		}
	}
	if err := exports.WriteGeoCSV(filepath.Join(dir, GeoFile), geo); err != nil {
		return fmt.Errorf("write geo aggregation: %w", err)
	}
	return nil
}

func (s *PipelineService) persist(ctx context.Context, awards []exports.AwardRow, deob []exports.DeobRow, geo []exports.GeoRow, report *RunReport) error {
	if s.storage == nil {
		slog.WarnContext(ctx, "No storage configured, skipping persistence")
		return nil
	}

	if err := s.storage.ReplaceAwards(ctx, awards); err != nil {
		return fmt.Errorf("persist awards: %w", err)
	}
	if err := s.storage.ReplaceTransactions(ctx, deob); err != nil {
		return fmt.Errorf("persist transactions: %w", err)
	}
	if err := s.storage.ReplaceGeo(ctx, geo); err != nil {
		return fmt.Errorf("persist geo aggregation: %w", err)
	}

	run := storage.PipelineRun{
		RunID:         report.RunID,
		StartedAt:     report.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:    time.Now().UTC().Format(time.RFC3339),
		InputPath:     s.config.InputCSVPath,
		RowsRead:      int64(report.Diagnostics.RowsRead),
		RowsDropped:   int64(report.Diagnostics.RowsDropped),
		CoercedValues: int64(report.Diagnostics.Coercions()),
		AwardsTotal:   int64(report.AwardsTotal),
		Degraded:      report.Degraded,
	}
	if err := s.storage.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// pushTables sends the awards master to the spreadsheet sink. Failures are
// logged and swallowed; the local exports already succeeded.
func (s *PipelineService) pushTables(ctx context.Context, awards []exports.AwardRow) {
	if s.tables == nil {
		return
	}

	header, records := exports.AwardsTable(awards)
	if err := s.tables.WriteTable(ctx, awardsMasterSheet, header, records); err != nil {
		slog.ErrorContext(ctx, "Failed to push awards master to spreadsheet",
			"error", err,
			"rows", len(records))
		return
	}
	slog.InfoContext(ctx, "Awards master pushed to spreadsheet", "rows", len(records))
}

// Close releases the storage handle when one is configured.
func (s *PipelineService) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
