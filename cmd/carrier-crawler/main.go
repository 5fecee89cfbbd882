package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"baikuk-automation/browser"
	"baikuk-automation/carrier"
	"baikuk-automation/config"
	"baikuk-automation/utils"
)

const (
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	cfg := config.Load()
	logger, err := utils.NewLoggerWithOptions(cfg.LoggerOptions())
	if err != nil {
		logger.Warn("Fluent Bit unavailable, logging to stdout only: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger, os.Args[1:])
	stop()

	_ = logger.Close()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) int {
	if len(args) < 1 {
		logger.Error("usage: carrier-crawler <phone>")
		return exitUsage
	}

	phone, err := carrier.NormalizePhone(args[0])
	if err != nil {
		logger.Error("%v: %q", err, args[0])
		return exitUsage
	}

	launch, err := browser.NewLauncher(browser.OptionsFromConfig(cfg), logger)
	if err != nil {
		logger.Error("Browser setup failed: %v", err)
		return exitFailed
	}

	logger.Info("=== Carrier crawler starting for %s ===", phone)
	report, err := carrier.New(cfg, launch, logger).Run(ctx, phone)
	if err != nil {
		logger.Error("Crawler failed: %v", err)
		return exitFailed
	}

	if !report.OK() {
		logger.Error("Steps failed: %s", strings.Join(report.Failed(), ", "))
		return exitFailed
	}
	logger.Info("All %d steps done", len(report.Steps))
	return 0
}
