package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"baikuk-automation/browser"
	"baikuk-automation/carrier"
	"baikuk-automation/config"
	"baikuk-automation/gris"
	"baikuk-automation/jobs"
	"baikuk-automation/server"
	"baikuk-automation/storage"
	"baikuk-automation/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger, err := utils.NewLoggerWithOptions(cfg.LoggerOptions())
	if err != nil {
		logger.Warn("Fluent Bit unavailable, logging to stdout only: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger)
	stop()

	_ = logger.Close()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) int {
	logger.Info("=== GRIS automation server starting ===")
	logger.Info("Config: engine=%s | visible=%t | max browsers=%d | job timeout=%ds | trigger=%s",
		cfg.BrowserEngine, cfg.Visible, cfg.MaxBrowsers, cfg.JobTimeoutSeconds, cfg.GrisSearchTrigger)

	tracker := jobs.NewTracker(time.Duration(cfg.JobTTLMinutes)*time.Minute, cfg.MaxJobs, logger)

	if cfg.PostgresEnabled {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			return 1
		}
		defer pgWriter.Close()
		tracker.SetRecorder(pgWriter)
		logger.Info("Job history stored in PostgreSQL (table: automation_jobs)")
	}

	launch, err := browser.NewLauncher(browser.OptionsFromConfig(cfg), logger)
	if err != nil {
		logger.Error("Browser setup failed: %v", err)
		return 1
	}

	pool := utils.NewWorkerPool(cfg.MaxBrowsers, cfg.BrowserRateLimitMs)
	runner := jobs.NewRunner(tracker, pool, time.Duration(cfg.JobTimeoutSeconds)*time.Second, logger)

	handlers := server.NewHandlers(
		runner,
		gris.New(cfg, launch, logger),
		carrier.NewProcessLauncher(cfg.CrawlerArgv(), logger),
		logger,
	)
	srv := server.New(cfg, handlers, logger)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go tracker.RunJanitor(janitorCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed: %v", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown: %v", err)
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Jobs still running after %s, exiting anyway", shutdownTimeout)
		} else {
			logger.Error("Runner shutdown: %v", err)
		}
	}
	logger.Info("=== GRIS automation server stopped ===")
	return code
}
