package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/worker"
)

const statsInterval = 15 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(func(c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		return c.ValidateWorker()
	})

	logger, closer := cli.SetupLogger(cfg, "finboard-worker")
	defer closer.Close()
	logger.Info("Starting finboard-worker")

	ledger, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName,
		logger.WithComponent(applog.ComponentSheets))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets ledger", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Google Sheets ledger ready",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	amqpClient.SetLogger(logger.WithComponent(applog.ComponentAMQP))
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(ledger, logger)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache))
	caches.Register("tombstones", mirror.Tombstones())
	caches.StartCleanup(time.Hour)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
		st := mirror.Stats()
		logger.Info("Mirror totals",
			"processed", st.Processed,
			"skipped", st.Skipped,
			"failed", st.Failed)
	})

	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := mirror.Stats()
				logger.Info("Mirror progress",
					"processed", st.Processed,
					"skipped", st.Skipped,
					"failed", st.Failed)
			}
		}
	}()

	if err := amqpClient.ConsumeTransactionEvents(ctx, mirror.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
