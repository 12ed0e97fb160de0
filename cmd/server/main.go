package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climate-dashboard/internal/config"
	"climate-dashboard/internal/dataset"
	"climate-dashboard/internal/export"
	"climate-dashboard/internal/geo"
	"climate-dashboard/internal/handlers"
	"climate-dashboard/internal/parser"
	"climate-dashboard/internal/services"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

func main() {
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

	// Initialize logger
	logger := logging.NewStructuredLogger("climate-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting climate dashboard API server", logging.Fields{
		"version":      "1.0.0",
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"city":         cfg.Dataset.City,
		"dataset_url":  cfg.Dataset.URL,
		"dataset_path": cfg.Dataset.Path,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("climate_dashboard")

	// Dataset source: URL takes precedence over local path
	var source dataset.Source
	if cfg.Dataset.URL != "" {
		source = dataset.NewHTTPSource(cfg.Dataset.URL, cfg.Dataset.FetchTimeout)
	} else {
		source = dataset.NewFileSource(cfg.Dataset.Path)
	}

	anchor, err := cfg.Dataset.Anchor()
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Invalid anchor date", logging.Fields{
			"anchor": cfg.Dataset.AnchorDate,
		}, err)
	}

	// The dataset store is the single owner of the parsed record set,
	// constructed here and injected everywhere it is read.
	recordParser := parser.NewParser(anchor, logger, metricsCollector)
	store := dataset.NewStore(source, recordParser, clockwork.NewRealClock(), logger, metricsCollector)

	// Boundary file is optional; without it the choropleth layer is empty
	boundaries := loadBoundaries(ctx, cfg.Boundary.Path, logger)

	// Initialize services
	exporter := export.NewWriter(logger, metricsCollector)
	climateService := services.NewClimateService(store, boundaries, geo.DefaultRegionFactors, exporter, logger, metricsCollector)

	// Initialize handlers
	climateHandler := handlers.NewClimateHandler(climateService, logger, metricsCollector, cfg.Dataset.City)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestIDMiddleware)

	// Register routes
	climateHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

// loadBoundaries reads the GeoJSON boundary file, returning nil when the file
// is missing or invalid so the server still starts without the map layer
func loadBoundaries(ctx context.Context, path string, logger *logging.StructuredLogger) *geo.FeatureCollection {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn(ctx, "[STARTUP_NO_BOUNDARIES] Boundary file not available, choropleth disabled", logging.Fields{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	defer f.Close()

	fc, err := geo.ParseBoundaries(f)
	if err != nil {
		logger.Warn(ctx, "[STARTUP_BAD_BOUNDARIES] Boundary file unparseable, choropleth disabled", logging.Fields{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}

	logger.Info(ctx, "[STARTUP_BOUNDARIES] Boundary regions loaded", logging.Fields{
		"path":    path,
		"regions": len(fc.Features),
	})
	return fc
}
