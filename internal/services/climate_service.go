package services

import (
	"context"
	"fmt"
	"time"

	"climate-platform/internal/models"
	"climate-platform/internal/repository"
	"climate-platform/pkg/logging"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// ClimateService is the read side of the platform: it validates query
// parameters and delegates to the repository.
type ClimateService struct {
	repo   repository.ClimateRepository
	logger *logging.StructuredLogger
}

// NewClimateService creates a new climate query service.
func NewClimateService(repo repository.ClimateRepository, logger *logging.StructuredLogger) *ClimateService {
	return &ClimateService{
		repo:   repo,
		logger: logger,
	}
}

// ListStations returns known stations, paginated.
func (s *ClimateService) ListStations(ctx context.Context, limit, offset int) ([]*repository.Station, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListStations(ctx, limit, offset)
}

// GetObservations returns hourly observations matching the filter.
func (s *ClimateService) GetObservations(ctx context.Context, filter repository.ObservationFilter) ([]*models.HourlyObservation, int, error) {
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, 0, err
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.GetObservations(ctx, filter)
}

// GetSummaries returns interval summaries matching the filter.
func (s *ClimateService) GetSummaries(ctx context.Context, filter repository.SummaryFilter) ([]*models.SummarizedMeasurement, int, error) {
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, 0, err
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.GetSummaries(ctx, filter)
}

// HealthCheck verifies the backing store is reachable.
func (s *ClimateService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return &models.ValidationError{
			Field:   "from",
			Value:   from.Format(time.RFC3339),
			Message: fmt.Sprintf("must not be after to (%s)", to.Format(time.RFC3339)),
		}
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
