// Package scheduler runs periodic re-imports. Repeating a run is safe
// because persistence is idempotent under the natural keys.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"climate-platform/internal/services"
	"climate-platform/pkg/logging"
)

// Scheduler periodically re-runs the full import.
type Scheduler struct {
	scheduler *gocron.Scheduler
	importer  *services.ImportService
	rootURL   string
	interval  time.Duration
	logger    *logging.StructuredLogger
}

// New creates a new Scheduler. A non-positive interval disables
// scheduling entirely.
func New(importer *services.ImportService, rootURL string, interval time.Duration, logger *logging.StructuredLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		importer:  importer,
		rootURL:   rootURL,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic import job and starts the underlying
// scheduler. Overlapping runs are prevented so a slow import never
// races a following one.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info(context.Background(), "[SCHEDULER_DISABLED] No import schedule configured", logging.Fields{})
		return nil
	}

	s.scheduler.SingletonModeAll()

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx := context.Background()

		s.logger.Info(ctx, "[SCHEDULER_RUN] Starting scheduled import", logging.Fields{
			"interval": s.interval.String(),
		})

		result, err := s.importer.Run(ctx, s.rootURL)
		if err != nil {
			s.logger.Error(ctx, "[SCHEDULER_ERROR] Scheduled import failed", logging.Fields{}, err)
			return
		}

		s.logger.Info(ctx, "[SCHEDULER_COMPLETE] Scheduled import completed", logging.Fields{
			"stations_succeeded": result.SucceededStations,
			"stations_failed":    result.FailedStations,
			"duration_seconds":   result.Duration.Seconds(),
		})
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
