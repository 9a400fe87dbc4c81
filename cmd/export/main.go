package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"grantcuts/internal/config"
	applog "grantcuts/internal/log"
	"grantcuts/internal/services"
	"grantcuts/internal/storage"
)

// One-shot pipeline run: read the extract, classify awards, write the
// export tables and load them into SQLite. Intended for cron and manual
// refreshes.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentPipeline,
	})
	applog.SetDefault(logger)

	cfg := config.Load()

	inputPath := flag.String("input", cfg.InputCSVPath, "transactions extract CSV")
	dp05Path := flag.String("dp05", cfg.DP05Path, "DP05 county demographics table (optional)")
	exportDir := flag.String("out", cfg.ExportDir, "export directory")
	skipDB := flag.Bool("no-db", false, "write CSVs only, skip the SQLite load")
	flag.Parse()

	cfg.InputCSVPath = *inputPath
	cfg.DP05Path = *dp05Path
	cfg.ExportDir = *exportDir

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	cutoff, err := cfg.EraCutoffTime()
	if err != nil {
		logger.Error("Invalid era cutoff", "error", err)
		os.Exit(1)
	}

	var repo *storage.SQLiteRepository
	if !*skipDB {
		repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
	}

	service := services.NewPipelineService(services.PipelineConfig{
		InputCSVPath: cfg.InputCSVPath,
		DP05Path:     cfg.DP05Path,
		ExportDir:    cfg.ExportDir,
		EraCutoff:    cutoff,
		Workers:      cfg.Workers,
	}, repo, nil)

	report, err := service.Run(context.Background())
	if err != nil {
		logger.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Export complete",
		"run_id", report.RunID,
		"awards", report.AwardsTotal,
		"deob_transactions", report.DeobTransactions,
		"counties", report.Counties,
		"degraded", report.Degraded,
		"export_dir", cfg.ExportDir)
}
