package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"climate-platform/internal/aggregate"
	"climate-platform/internal/catalog"
	"climate-platform/internal/config"
	"climate-platform/internal/fetch"
	"climate-platform/internal/repository"
	"climate-platform/internal/scheduler"
	"climate-platform/internal/services"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	rootURL := flag.String("root-url", "", "Root listing URL of the hourly climate data (overrides configuration)")
	scheduleFlag := flag.Duration("schedule", 0, "Re-import interval; 0 runs a single import and exits (overrides configuration)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *rootURL != "" {
		cfg.Importer.RootURL = *rootURL
	}
	if *scheduleFlag > 0 {
		cfg.Importer.Schedule = *scheduleFlag
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("climate-importer", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[IMPORTER_START] Starting climate data importer", logging.Fields{
		"version":          "1.0.0",
		"root_url":         cfg.Importer.RootURL,
		"download_workers": cfg.Importer.DownloadWorkers,
		"batch_size":       cfg.Importer.BatchSize,
		"schedule":         cfg.Importer.Schedule.String(),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("climate_importer")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[IMPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize pipeline components
	climateRepo := repository.NewClimateRepository(db, logger, metricsCollector, cfg.Importer.BatchSize, cfg.Importer.WriteWorkers)

	httpClient := &http.Client{Timeout: cfg.Importer.DownloadTimeout}
	sourceCatalog := catalog.New(httpClient, logger)
	fetcher := fetch.New(httpClient, cfg.Importer.DownloadWorkers)
	aggregator := aggregate.New(cfg.Importer.AggregationWorkers)

	importService := services.NewImportService(
		sourceCatalog,
		fetcher,
		aggregator,
		climateRepo,
		logger,
		metricsCollector,
		cfg.Importer.MergeWorkers,
	)

	// Run the initial import
	result, err := importService.Run(ctx, cfg.Importer.RootURL)
	if err != nil {
		logger.Fatal(ctx, "[IMPORT_ERROR] Import failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	printResult(result)

	logger.Info(ctx, "[IMPORTER_COMPLETE] Import completed", logging.Fields{
		"stations_succeeded": result.SucceededStations,
		"stations_failed":    result.FailedStations,
		"observations":       result.TotalObservations,
		"summaries":          result.TotalSummaries,
		"duration_seconds":   result.Duration.Seconds(),
	})

	if cfg.Importer.Schedule <= 0 {
		if result.TotalStations > 0 && result.SucceededStations == 0 {
			os.Exit(1)
		}
		return
	}

	// Keep running and re-import periodically
	importScheduler := scheduler.New(importService, cfg.Importer.RootURL, cfg.Importer.Schedule, logger)
	if err := importScheduler.Start(); err != nil {
		logger.Fatal(ctx, "[SCHEDULER_ERROR] Failed to start scheduler", logging.Fields{}, err)
	}
	defer importScheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[IMPORTER_SHUTDOWN] Shutting down importer", logging.Fields{})
}

func printResult(result *services.ImportResult) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IMPORT COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Stations:           %d\n", result.TotalStations)
	fmt.Printf("Succeeded Stations: %d\n", result.SucceededStations)
	fmt.Printf("Failed Stations:    %d\n", result.FailedStations)
	fmt.Printf("Archives:           %d\n", result.TotalArchives)
	fmt.Printf("Observations:       %d\n", result.TotalObservations)
	fmt.Printf("Summaries:          %d\n", result.TotalSummaries)
	fmt.Printf("Skipped Rows:       %d\n", result.SkippedRows)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}
}
