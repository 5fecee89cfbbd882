package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"baikuk-automation/browser"
	"baikuk-automation/config"
	"baikuk-automation/gris"
	"baikuk-automation/utils"
)

func main() {
	address := flag.String("address", "", "address to search; empty only opens the portal")
	flag.Parse()

	cfg := config.Load()
	logger, err := utils.NewLoggerWithOptions(cfg.LoggerOptions())
	if err != nil {
		logger.Warn("Fluent Bit unavailable, logging to stdout only: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, logger, *address)
	stop()

	_ = logger.Close()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger, address string) int {
	launch, err := browser.NewLauncher(browser.OptionsFromConfig(cfg), logger)
	if err != nil {
		logger.Error("Browser setup failed: %v", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.JobTimeoutSeconds)*time.Second)
	defer cancel()

	res, err := gris.New(cfg, launch, logger).Run(ctx, address)
	if err != nil {
		logger.Error("Lookup failed: %v", err)
		return 1
	}
	if !res.OK {
		logger.Error("Lookup did not finish: %s", res.Reason)
		return 1
	}

	if res.LandUse == nil {
		return 0
	}
	fmt.Printf("\n  Land-use image: %s\n", res.LandUse.ImageURL)
	keys := make([]string, 0, len(res.LandUse.Fields))
	for k := range res.LandUse.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %s\n", k, res.LandUse.Fields[k])
	}
	fmt.Println()
	return 0
}
