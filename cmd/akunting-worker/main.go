package main

import (
	"context"
	"os"
	"time"

	"akunting/internal/cli"
	"akunting/internal/config"
	"akunting/internal/feed"
	"akunting/internal/log"
	gsheet "akunting/internal/sheets/google"
	"akunting/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger, (*config.Config).ValidateWorker)
	logger := cli.ConfigureLogger(cfg, log.ComponentWorker).Logger

	logger.Info("Starting akunting-worker")

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res := cli.InitBackend(initCtx, logger, cfg, cfg.AMQPQueue)
	sheetsClient, err := gsheet.New(initCtx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		Sheet:           cfg.GoogleSummarySheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	initCancel()
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSummarySheet)

	reports := worker.NewReportWorker(res.Store, sheetsClient, cfg.Location(), cfg.ReportInterval)

	// Without AMQP the server's events never reach this process; the
	// periodic export is all there is.
	var sub feed.Subscriber
	if res.Remote {
		sub = res.Subscriber
	} else {
		logger.Info("No AMQP change feed, exporting on interval only", "interval", cfg.ReportInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if err := reports.Run(ctx, sub); err != nil {
		logger.Error("Report worker stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
