package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"

	"climate-dashboard/internal/config"
	"climate-dashboard/internal/dataset"
	"climate-dashboard/internal/export"
	"climate-dashboard/internal/parser"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

func main() {
	// Parse command-line flags
	output := flag.String("output", "", "Output file path (default: stdout)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger; logs go to stderr so stdout stays clean for CSV
	logger := logging.NewStructuredLogger("climate-export", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	logger.Info(ctx, "[EXPORT_START] Starting record set export", logging.Fields{
		"version":      "1.0.0",
		"dataset_url":  cfg.Dataset.URL,
		"dataset_path": cfg.Dataset.Path,
		"output":       *output,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("climate_export")

	// Dataset source: URL takes precedence over local path
	var source dataset.Source
	if cfg.Dataset.URL != "" {
		source = dataset.NewHTTPSource(cfg.Dataset.URL, cfg.Dataset.FetchTimeout)
	} else {
		source = dataset.NewFileSource(cfg.Dataset.Path)
	}

	anchor, err := cfg.Dataset.Anchor()
	if err != nil {
		logger.Fatal(ctx, "[EXPORT_ERROR] Invalid anchor date", logging.Fields{
			"anchor": cfg.Dataset.AnchorDate,
		}, err)
	}

	recordParser := parser.NewParser(anchor, logger, metricsCollector)
	store := dataset.NewStore(source, recordParser, clockwork.NewRealClock(), logger, metricsCollector)

	records, err := store.Records(ctx)
	if err != nil {
		logger.Fatal(ctx, "[EXPORT_ERROR] Failed to load dataset", logging.Fields{}, err)
	}

	// Resolve output destination
	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatal(ctx, "[EXPORT_ERROR] Failed to create output file", logging.Fields{
				"output": *output,
			}, err)
		}
		defer f.Close()
		out = f
	}

	writer := export.NewWriter(logger, metricsCollector)
	if err := writer.Write(ctx, out, records); err != nil {
		logger.Fatal(ctx, "[EXPORT_ERROR] Failed to write export", logging.Fields{}, err)
	}

	// Print summary to stderr
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))
	fmt.Fprintln(os.Stderr, "EXPORT COMPLETE")
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))
	fmt.Fprintf(os.Stderr, "Records Exported: %d\n", len(records))
	if *output != "" {
		fmt.Fprintf(os.Stderr, "Output File:      %s\n", *output)
	}

	logger.Info(ctx, "[EXPORT_COMPLETE] Export finished", logging.Fields{
		"records": len(records),
		"output":  *output,
	})
}
