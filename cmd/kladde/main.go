package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"kegelkladde/internal/cache"
	"kegelkladde/internal/cli"
	"kegelkladde/internal/editlock"
	apphttp "kegelkladde/internal/http"
	applog "kegelkladde/internal/log"
	"kegelkladde/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// A nil *amqp.Client must not end up inside the interface.
	var events services.EventPublisher
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		events = amqpClient
	}

	cacheManager := cache.NewManager()
	cacheManager.StartCleanup(time.Minute)
	locks := editlock.New(cfg.LockTTL, cacheManager)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		DB:       repo,
		Gamedays: services.NewGamedayService(repo, events, cfg.DefaultContribution),
		Cash:     services.NewCashService(repo),
		Rankings: services.NewRankingService(repo, events),
		Locks:    locks,
		Logger:   logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("SQLite close error", "error", err)
		}
	})

	logger.Info("Starting kegelkladde server",
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"events", amqpClient != nil,
		"lock_ttl", cfg.LockTTL.String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
