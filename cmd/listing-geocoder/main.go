package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"baikuk-automation/config"
	"baikuk-automation/models"
	"baikuk-automation/services"
	"baikuk-automation/storage"
	"baikuk-automation/utils"
)

type options struct {
	in         string
	out        string
	encoding   string
	clean      bool
	geocode    bool
	useDB      bool
	reportPath string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("listing-geocoder", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input CSV sheet (required)")
	fs.StringVar(&o.out, "out", "output/listings_geocoded.csv", "output CSV path")
	fs.StringVar(&o.encoding, "encoding", "", "input encoding: utf-8 or euc-kr (default from CSV_INPUT_ENCODING)")
	fs.BoolVar(&o.clean, "clean", true, "normalise integer and address columns")
	fs.BoolVar(&o.geocode, "geocode", true, "append lat, lng and geohash columns")
	fs.BoolVar(&o.useDB, "db", false, "upsert the result into PostgreSQL")
	fs.StringVar(&o.reportPath, "report", "", "also write the insights report as YAML to this path")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.in == "" {
		fs.Usage()
		return o, errors.New("-in is required")
	}
	return o, nil
}

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
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		logger.Error("%v", err)
		return 2
	}
	if o.encoding == "" {
		o.encoding = cfg.CSVInputEncoding
	}

	logger.Info("=== Listing geocoder starting ===")
	logger.Info("Config: in=%s (%s) | clean=%t | geocode=%t | concurrency=%d | rate: %dms",
		o.in, o.encoding, o.clean, o.geocode, cfg.GeocodeConcurrency, cfg.GeocodeRateLimitMs)

	table, err := storage.ReadTable(o.in, o.encoding)
	if err != nil {
		logger.Error("Failed to read sheet: %v", err)
		return 1
	}
	logger.Info("Loaded %d rows, %d columns", len(table.Rows), len(table.Header))

	if o.clean {
		if err := services.NewCleaner(logger).Clean(table); err != nil {
			logger.Error("Cleaning failed: %v", err)
			return 1
		}
		logger.Info("Integer columns cleaned")
	}

	if o.geocode {
		if cfg.KakaoAPIKey == "" {
			logger.Error("KAKAO_REST_API_KEY is not set")
			return 1
		}
		stats, err := services.NewGeocoder(cfg, nil, logger).GeocodeTable(ctx, table)
		if err != nil {
			logger.Error("Geocoding failed: %v", err)
			return 1
		}
		logger.Info("Geocoded %d/%d rows (%d without location)", stats.Geocoded, stats.Rows, stats.Failed)
	}

	if err := storage.WriteTable(o.out, table); err != nil {
		logger.Error("CSV write failed: %v", err)
		return 1
	}
	logger.Info("Sheet saved to %s", o.out)

	listings := models.ListingsFromTable(table)

	if o.useDB {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			return 1
		}
		defer pgWriter.Close()

		if err := pgWriter.Write(listings); err != nil {
			logger.Error("PostgreSQL write failed: %v", err)
		} else {
			logger.Info("Listings stored in PostgreSQL (table: listings)")
			if dbListings, err := pgWriter.FetchAll(); err != nil {
				logger.Error("Failed to fetch listings from DB for insights: %v", err)
			} else {
				listings = dbListings
			}
		}
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(listings)
	insightSvc.Print(report)

	if o.reportPath != "" {
		if err := storage.WriteReport(o.reportPath, report); err != nil {
			logger.Error("Report write failed: %v", err)
		} else {
			logger.Info("Report saved to %s", o.reportPath)
		}
	}

	fmt.Printf("  Done. Sheet → %s\n\n", o.out)
	return 0
}
