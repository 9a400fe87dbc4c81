package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"grantcuts/internal/amqp"
	"grantcuts/internal/config"
	applog "grantcuts/internal/log"
	"grantcuts/internal/services"
	"grantcuts/internal/sheets"
	gsheet "grantcuts/internal/sheets/google"
	"grantcuts/internal/storage"
	"grantcuts/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting grantcuts-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	cutoff, err := cfg.EraCutoffTime()
	if err != nil {
		logger.Error("Invalid era cutoff", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Google Sheets sink is optional
	var tables sheets.TableWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		tables = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	service := services.NewPipelineService(services.PipelineConfig{
		InputCSVPath: cfg.InputCSVPath,
		DP05Path:     cfg.DP05Path,
		ExportDir:    cfg.ExportDir,
		EraCutoff:    cutoff,
		Workers:      cfg.Workers,
	}, repo, tables)

	refreshWorker := worker.NewRefreshWorker(service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = amqpClient.ConsumeWithReconnect(ctx, func(msg *amqp.RefreshRequest) error {
		return refreshWorker.HandleRefreshRequest(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
