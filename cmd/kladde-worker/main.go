package main

import (
	"context"
	"errors"
	"os"
	"time"

	"kegelkladde/internal/cli"
	applog "kegelkladde/internal/log"
	"kegelkladde/internal/services"
	"kegelkladde/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting kladde-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	amqpClient := cli.InitAMQP(logger, cfg)
	var events services.EventPublisher
	if amqpClient != nil {
		events = amqpClient
	}

	gamedays := services.NewGamedayService(repo, events, cfg.DefaultContribution)
	rankings := services.NewRankingService(repo, events)

	var sched *worker.Scheduler
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if sched != nil {
			if err := sched.Shutdown(); err != nil {
				logger.Warn("Scheduler shutdown error", "error", err)
			}
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		_ = repo.Close()
	})

	exporter := cli.InitExporter(ctx, logger, cfg)
	exportWorker := worker.NewExportWorker(repo, gamedays, exporter, cfg.ExportBatchSize)

	// Both jobs also run once on start: that is the catch-up for rounds and
	// archived gamedays missed while the worker was down.
	var err error
	sched, err = worker.NewScheduler(ctx,
		worker.Job{Name: "ranking-reconcile", Interval: cfg.RankingReconcileInterval, Run: rankings.Reconcile},
		worker.Job{Name: "settlement-export", Interval: cfg.ExportInterval, Run: exportWorker.ProcessPendingExports},
	)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()
	logger.Info("Scheduler started",
		"jobs", sched.JobNames(),
		"reconcile_interval", cfg.RankingReconcileInterval.String(),
		"export_interval", cfg.ExportInterval.String())

	if amqpClient != nil {
		go func() {
			err := amqpClient.Consume(ctx, exportWorker.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption stopped, relying on scheduled exports", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping event consumption - AMQP disabled, relying on scheduled exports")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
