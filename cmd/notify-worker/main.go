package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"donatrack/internal/amqp"
	"donatrack/internal/backend"
	"donatrack/internal/config"
	"donatrack/internal/export"
	"donatrack/internal/log"
	"donatrack/internal/notify"
)

const amqpConnectAttempts = 5

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{
		Level:       level,
		Component:   log.ComponentWorker,
		Development: cfg.IsDevelopment(),
	})
	log.SetDefault(logger)

	logger.Info("Starting notify-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	result, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The broker may come up after us; retry before giving up.
	amqpClient, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpConnectAttempts)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Google Sheets mirror is optional
	var mirror notify.LedgerMirror
	if cfg.GoogleSpreadsheetID != "" {
		sheetsMirror, err := export.NewMirrorFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err.Error())
			os.Exit(1)
		}
		mirror = sheetsMirror
		logger.Info("Google Sheets mirror initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	worker := notify.NewWorker(result.Store, notify.LogMailer{}, mirror, cfg.NotifyBatchSize)

	// Catch up on anything that arrived while the worker was down
	logger.Info("Performing startup notification sweep")
	if err := worker.ProcessPending(ctx); err != nil {
		logger.Error("Startup notification sweep failed", log.FieldError, err.Error())
		// Don't exit - continue with normal operation
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return amqpClient.ConsumeDonationCreated(ctx, worker.HandleDonationCreated)
	})

	// Backup sweep for messages the queue lost or the worker missed
	group.Go(func() error {
		ticker := time.NewTicker(cfg.NotifyInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := worker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic notification sweep failed", log.FieldError, err.Error())
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}
