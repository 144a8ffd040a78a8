// Package repository provides data access for observations and
// interval summaries, including the throughput-oriented bulk loader
// used by the importer.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"climate-platform/internal/models"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

// ClimateRepository provides data access for climate data.
type ClimateRepository interface {
	// Station operations
	SaveStations(ctx context.Context, stationIDs []string) error
	ListStations(ctx context.Context, limit, offset int) ([]*Station, error)

	// Bulk-load operations. Writes are idempotent: a record whose
	// natural key already exists is silently skipped, so repeated
	// imports over overlapping source data converge.
	SaveObservations(ctx context.Context, observations []*models.HourlyObservation) error
	SaveSummaries(ctx context.Context, summaries []*models.SummarizedMeasurement) error

	// Query operations
	GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.HourlyObservation, int, error)
	GetSummaries(ctx context.Context, filter SummaryFilter) ([]*models.SummarizedMeasurement, int, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// Station is a persisted station reference.
type Station struct {
	StationID string    `json:"station_id" db:"station_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ObservationFilter defines filters for querying hourly observations.
type ObservationFilter struct {
	StationID *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// SummaryFilter defines filters for querying interval summaries.
type SummaryFilter struct {
	StationID *string
	Kind      *models.IntervalKind
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// climateRepository implements ClimateRepository.
type climateRepository struct {
	db        *database.PostgresDB
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	batchSize int

	// writeSlots bounds concurrent chunk transactions across all
	// callers, so parallel bulk loads share one write pool.
	writeSlots chan struct{}
}

// NewClimateRepository creates a new climate repository. batchSize
// bounds the records per transaction; writeWorkers bounds how many
// chunks are written concurrently.
func NewClimateRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, batchSize, writeWorkers int) ClimateRepository {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if writeWorkers <= 0 {
		writeWorkers = 4
	}
	return &climateRepository{
		db:         db,
		logger:     logger,
		metrics:    metricsCollector,
		batchSize:  batchSize,
		writeSlots: make(chan struct{}, writeWorkers),
	}
}

// SaveStations persists station references, skipping known ones.
func (r *climateRepository) SaveStations(ctx context.Context, stationIDs []string) error {
	query := `
		INSERT INTO stations (station_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (station_id) DO NOTHING
	`

	now := time.Now().UTC()
	for _, id := range stationIDs {
		if _, err := r.db.ExecContext(ctx, "insert_station", query, id, now); err != nil {
			return fmt.Errorf("failed to save station %s: %w", id, err)
		}
	}
	return nil
}

// ListStations retrieves stations with pagination.
func (r *climateRepository) ListStations(ctx context.Context, limit, offset int) ([]*Station, error) {
	query := `
		SELECT station_id, created_at
		FROM stations
		ORDER BY station_id
		LIMIT $1 OFFSET $2
	`

	var stations []*Station
	if err := r.db.SelectContext(ctx, "list_stations", &stations, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}

const insertObservationQuery = `
	INSERT INTO hourly_observations (
		station_id, measurement_time,
		temperature_celsius, humidity_percent, dew_point_celsius,
		cloud_coverage_octas, air_pressure_hpa,
		precipitation_mm, precipitation_type, sunshine_minutes,
		wind_speed_ms, max_wind_gust_ms, wind_direction_deg,
		visibility_m, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (station_id, measurement_time) DO NOTHING
`

// SaveObservations bulk-persists hourly observations in bounded,
// concurrently written chunks.
func (r *climateRepository) SaveObservations(ctx context.Context, observations []*models.HourlyObservation) error {
	if len(observations) == 0 {
		return nil
	}

	err := r.writeChunks(ctx, len(observations), func(lo, hi int) error {
		return r.writeObservationChunk(ctx, observations[lo:hi])
	})
	if err != nil {
		return err
	}

	r.metrics.RecordsWritten.WithLabelValues("observation").Add(float64(len(observations)))
	return nil
}

func (r *climateRepository) writeObservationChunk(ctx context.Context, chunk []*models.HourlyObservation) error {
	timer := time.Now()
	defer func() {
		r.metrics.WriteBatchSize.Observe(float64(len(chunk)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Observation chunk written", logging.Fields{
			"count":       len(chunk),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertObservationQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range chunk {
		_, err := stmt.ExecContext(ctx,
			obs.StationID,
			obs.MeasurementTime,
			obs.Temperature,
			obs.Humidity,
			obs.DewPoint,
			obs.CloudCoverage,
			obs.AirPressure,
			obs.Precipitation,
			obs.PrecipitationType,
			obs.SunshineMinutes,
			obs.WindSpeed,
			obs.MaxWindGust,
			obs.WindDirection,
			obs.Visibility,
			obs.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const insertSummaryQuery = `
	INSERT INTO measurement_summaries (
		station_id, interval_kind, first_day, last_day,
		temperature_min, temperature_avg, temperature_max,
		temperature_min_day, temperature_max_day, temperature_sum, temperature_count,
		dew_point_min, dew_point_avg, dew_point_max,
		dew_point_min_day, dew_point_max_day, dew_point_sum, dew_point_count,
		humidity_min, humidity_avg, humidity_max,
		humidity_min_day, humidity_max_day, humidity_sum, humidity_count,
		pressure_min, pressure_avg, pressure_max,
		pressure_min_day, pressure_max_day, pressure_sum, pressure_count,
		wind_speed_avg, wind_speed_max, wind_speed_max_day, wind_speed_sum, wind_speed_count,
		visibility_min, visibility_avg, visibility_max, visibility_sum, visibility_count,
		sunshine_sum, sunshine_count,
		rainfall_sum, rainfall_count,
		snowfall_sum, snowfall_count,
		cloud_octas_0, cloud_octas_1, cloud_octas_2, cloud_octas_3, cloud_octas_4,
		cloud_octas_5, cloud_octas_6, cloud_octas_7, cloud_octas_8,
		cloud_not_visible, cloud_not_measured,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43, $44, $45,
		$46, $47, $48, $49, $50, $51, $52, $53, $54, $55, $56, $57, $58, $59, $60)
	ON CONFLICT (station_id, interval_kind, first_day) DO NOTHING
`

// SaveSummaries bulk-persists interval summaries in bounded,
// concurrently written chunks.
func (r *climateRepository) SaveSummaries(ctx context.Context, summaries []*models.SummarizedMeasurement) error {
	if len(summaries) == 0 {
		return nil
	}

	err := r.writeChunks(ctx, len(summaries), func(lo, hi int) error {
		return r.writeSummaryChunk(ctx, summaries[lo:hi])
	})
	if err != nil {
		return err
	}

	r.metrics.RecordsWritten.WithLabelValues("summary").Add(float64(len(summaries)))
	return nil
}

func (r *climateRepository) writeSummaryChunk(ctx context.Context, chunk []*models.SummarizedMeasurement) error {
	timer := time.Now()
	defer func() {
		r.metrics.WriteBatchSize.Observe(float64(len(chunk)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Summary chunk written", logging.Fields{
			"count":       len(chunk),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSummaryQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range chunk {
		if err := execSummaryInsert(ctx, stmt, s); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func execSummaryInsert(ctx context.Context, stmt *sql.Stmt, s *models.SummarizedMeasurement) error {
	h := s.CloudCoverage
	_, err := stmt.ExecContext(ctx,
		s.StationID,
		s.Interval.Kind.String(),
		s.Interval.FirstDay,
		s.Interval.LastDay,
		s.Temperature.Min, s.Temperature.Avg(), s.Temperature.Max,
		s.Temperature.MinDay, s.Temperature.MaxDay, s.Temperature.Sum, s.Temperature.Count,
		s.DewPoint.Min, s.DewPoint.Avg(), s.DewPoint.Max,
		s.DewPoint.MinDay, s.DewPoint.MaxDay, s.DewPoint.Sum, s.DewPoint.Count,
		s.Humidity.Min, s.Humidity.Avg(), s.Humidity.Max,
		s.Humidity.MinDay, s.Humidity.MaxDay, s.Humidity.Sum, s.Humidity.Count,
		s.AirPressure.Min, s.AirPressure.Avg(), s.AirPressure.Max,
		s.AirPressure.MinDay, s.AirPressure.MaxDay, s.AirPressure.Sum, s.AirPressure.Count,
		s.WindSpeed.Avg(), s.WindSpeed.Max, s.WindSpeed.MaxDay, s.WindSpeed.Sum, s.WindSpeed.Count,
		s.Visibility.Min, s.Visibility.Avg(), s.Visibility.Max, s.Visibility.Sum, s.Visibility.Count,
		s.SunshineMinutes.Sum, s.SunshineMinutes.Count,
		s.Rainfall.Sum, s.Rainfall.Count,
		s.Snowfall.Sum, s.Snowfall.Count,
		h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], h[8],
		h[models.CloudBucketNotVisible], h[models.CloudBucketNotMeasured],
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// writeChunks splits total records into batchSize chunks and writes
// them concurrently under the shared write-worker bound. Chunks are
// independent transactions; the first failure wins.
func (r *climateRepository) writeChunks(ctx context.Context, total int, write func(lo, hi int) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for lo := 0; lo < total; lo += r.batchSize {
		hi := lo + r.batchSize
		if hi > total {
			hi = total
		}

		wg.Add(1)
		r.writeSlots <- struct{}{}
		go func(lo, hi int) {
			defer wg.Done()
			defer func() { <-r.writeSlots }()

			if err := write(lo, hi); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(lo, hi)
	}
	wg.Wait()

	return firstErr
}

// HealthCheck performs a repository health check.
func (r *climateRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
