// Package services contains the business logic of the platform: the
// import pipeline orchestration and the read-side query services.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"sync"
	"time"

	"climate-platform/internal/aggregate"
	"climate-platform/internal/archive"
	"climate-platform/internal/catalog"
	"climate-platform/internal/fetch"
	"climate-platform/internal/merge"
	"climate-platform/internal/models"
	"climate-platform/internal/repository"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

// ImportService drives the full pipeline: catalog crawl, archive
// download, unzip/parse, per-station merge, bottom-up aggregation and
// bulk persistence. Stations are independent units of work; an error
// in one station's pipeline never aborts another station.
type ImportService struct {
	catalog    *catalog.Catalog
	fetcher    *fetch.Fetcher
	aggregator *aggregate.Aggregator
	repo       repository.ClimateRepository
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector

	// mergeSlots bounds the CPU-bound unzip/parse/merge work across
	// all stations; one task per downloaded archive.
	mergeSlots chan struct{}
}

// ImportResult contains import statistics for one run.
type ImportResult struct {
	TotalStations     int
	SucceededStations int
	FailedStations    int
	TotalArchives     int
	TotalObservations int
	TotalSummaries    int
	SkippedRows       int
	Duration          time.Duration
	Errors            []string
}

// NewImportService creates a new import service. mergeWorkers <= 0
// sizes the parse/merge pool near the host's core count.
func NewImportService(
	cat *catalog.Catalog,
	fetcher *fetch.Fetcher,
	aggregator *aggregate.Aggregator,
	repo repository.ClimateRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	mergeWorkers int,
) *ImportService {
	if mergeWorkers <= 0 {
		mergeWorkers = runtime.GOMAXPROCS(0)
	}
	return &ImportService{
		catalog:    cat,
		fetcher:    fetcher,
		aggregator: aggregator,
		repo:       repo,
		logger:     logger,
		metrics:    metricsCollector,
		mergeSlots: make(chan struct{}, mergeWorkers),
	}
}

// Run executes one full import. A catalog crawl failure is fatal for
// the whole run; individual station failures are logged, counted and
// skipped. An aggregation ordering violation is a programming bug and
// aborts the run loudly.
func (s *ImportService) Run(ctx context.Context, rootURL string) (*ImportResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[IMPORT_START] Starting climate data import", logging.Fields{
		"root_url": rootURL,
	})

	listing, err := s.catalog.Discover(ctx, rootURL)
	if err != nil {
		return nil, fmt.Errorf("catalog crawl failed: %w", err)
	}

	byStation := groupByStation(listing.Sources)

	stationIDs := make([]string, 0, len(byStation))
	for id := range byStation {
		stationIDs = append(stationIDs, id)
	}
	if err := s.repo.SaveStations(ctx, stationIDs); err != nil {
		return nil, fmt.Errorf("failed to persist stations: %w", err)
	}

	result := &ImportResult{
		TotalStations: len(byStation),
		TotalArchives: len(listing.Sources),
	}

	s.logger.Info(ctx, "[IMPORT_CATALOG] Source catalog discovered", logging.Fields{
		"stations": len(byStation),
		"archives": len(listing.Sources),
	})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)

	for stationID, sources := range byStation {
		wg.Add(1)
		go func(stationID string, sources []models.SourceFile) {
			defer wg.Done()

			stats, err := s.importStation(ctx, stationID, sources)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				var violation *aggregate.InvariantViolationError
				if errors.As(err, &violation) && fatalErr == nil {
					fatalErr = err
				}
				result.FailedStations++
				result.Errors = append(result.Errors, fmt.Sprintf("station %s: %v", stationID, err))
				s.logger.Error(ctx, "[IMPORT_STATION_ERROR] Station import failed", logging.Fields{
					"station_id": stationID,
				}, err)
				s.metrics.StationsImportedTotal.WithLabelValues("failed").Inc()
				return
			}

			result.SucceededStations++
			result.TotalObservations += stats.observations
			result.TotalSummaries += stats.summaries
			result.SkippedRows += stats.skippedRows
			s.metrics.StationsImportedTotal.WithLabelValues("succeeded").Inc()
		}(stationID, sources)
	}
	wg.Wait()

	result.Duration = time.Since(startTime)
	s.metrics.ImportDuration.Observe(result.Duration.Seconds())

	if fatalErr != nil {
		// The level-barrier contract was violated; this cannot be
		// caused by bad input data and must not be absorbed.
		return result, fatalErr
	}

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Import completed", logging.Fields{
		"stations_succeeded": result.SucceededStations,
		"stations_failed":    result.FailedStations,
		"observations":       result.TotalObservations,
		"summaries":          result.TotalSummaries,
		"skipped_rows":       result.SkippedRows,
		"duration_seconds":   result.Duration.Seconds(),
	})

	return result, nil
}

type stationStats struct {
	observations int
	summaries    int
	skippedRows  int
}

// importStation runs one station's pipeline: download and merge every
// archive, then persist hourly observations while aggregating and
// persisting the interval summaries. The first archive failure cancels
// the remaining work of this station only.
func (s *ImportService) importStation(ctx context.Context, stationID string, sources []models.SourceFile) (*stationStats, error) {
	stationCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	merger := merge.NewMerger(stationID, merge.NewValuePool())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, src := range sources {
		wg.Add(1)
		go func(src models.SourceFile) {
			defer wg.Done()

			if err := s.mergeArchive(stationCtx, merger, src); err != nil {
				s.metrics.RecordImportError(classifyError(err))
				fail(err)
			}
		}(src)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	observations := merger.Observations()
	s.metrics.RowsMergedTotal.Add(float64(len(observations)))

	// Hourly observations must be fully merged before aggregation
	// starts; persisting them runs in parallel with aggregating.
	var (
		persistErr   error
		summaries    []*models.SummarizedMeasurement
		aggregateErr error
		persistWG    sync.WaitGroup
	)

	persistWG.Add(2)
	go func() {
		defer persistWG.Done()
		persistErr = s.repo.SaveObservations(ctx, observations)
	}()
	go func() {
		defer persistWG.Done()

		timer := time.Now()
		summaries, aggregateErr = s.aggregator.SummarizeStation(ctx, stationID, observations)
		s.metrics.AggregationDuration.WithLabelValues("station").Observe(time.Since(timer).Seconds())
	}()
	persistWG.Wait()

	if persistErr != nil {
		return nil, fmt.Errorf("failed to persist observations: %w", persistErr)
	}
	if aggregateErr != nil {
		return nil, aggregateErr
	}

	for _, summary := range summaries {
		s.metrics.SummariesTotal.WithLabelValues(summary.Interval.Kind.String()).Inc()
	}

	if err := s.repo.SaveSummaries(ctx, summaries); err != nil {
		return nil, fmt.Errorf("failed to persist summaries: %w", err)
	}

	s.logger.Info(ctx, "[IMPORT_STATION_COMPLETE] Station imported", logging.Fields{
		"station_id":   stationID,
		"archives":     len(sources),
		"observations": len(observations),
		"summaries":    len(summaries),
		"skipped_rows": merger.SkippedRows(),
	})

	return &stationStats{
		observations: len(observations),
		summaries:    len(summaries),
		skippedRows:  merger.SkippedRows(),
	}, nil
}

// mergeArchive downloads one archive under the download pool, then
// unzips, parses and merges it under the CPU pool.
func (s *ImportService) mergeArchive(ctx context.Context, merger *merge.Merger, src models.SourceFile) error {
	timer := time.Now()
	data, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		s.metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return err
	}
	s.metrics.DownloadsTotal.WithLabelValues("succeeded").Inc()
	s.metrics.DownloadDuration.Observe(time.Since(timer).Seconds())

	select {
	case s.mergeSlots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.mergeSlots }()

	table, err := archive.ExtractTable(path.Base(src.URL), data)
	if err != nil {
		return err
	}
	s.metrics.ArchivesParsedTotal.Inc()

	return merger.MergeTable(src, table)
}

func classifyError(err error) string {
	var downloadErr *fetch.DownloadError
	if errors.As(err, &downloadErr) {
		return "download_error"
	}
	var schemaErr *merge.SchemaMismatchError
	if errors.As(err, &schemaErr) {
		return "schema_mismatch"
	}
	return "parse_error"
}

func groupByStation(sources []models.SourceFile) map[string][]models.SourceFile {
	byStation := make(map[string][]models.SourceFile)
	for _, src := range sources {
		byStation[src.StationID] = append(byStation[src.StationID], src)
	}
	return byStation
}
