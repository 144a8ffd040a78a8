package aggregate

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"climate-platform/internal/models"
)

// Aggregator runs per-(station, interval) summary computations on a
// bounded worker pool. The pool is shared: stations aggregating
// concurrently contend on the same slots. Granularities are strictly
// ordered: every group of a level completes before any group of the
// next level starts, because coarser levels read the finer level's
// output.
type Aggregator struct {
	slots chan struct{}
}

// New creates an aggregator. workers <= 0 sizes the pool near the
// host's core count; the work is CPU-bound.
func New(workers int) *Aggregator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Aggregator{slots: make(chan struct{}, workers)}
}

// SummarizeStation computes every granularity for one station,
// bottom-up: hours -> days -> months -> {seasons, years} -> decades.
// The hourly set must be fully merged before this is called.
func (a *Aggregator) SummarizeStation(ctx context.Context, stationID string, hours []*models.HourlyObservation) ([]*models.SummarizedMeasurement, error) {
	days, err := a.summarizeDays(ctx, stationID, hours)
	if err != nil {
		return nil, err
	}

	months, err := a.composeLevel(ctx, stationID, models.IntervalMonth, days)
	if err != nil {
		return nil, err
	}

	seasons, err := a.composeLevel(ctx, stationID, models.IntervalSeason, months)
	if err != nil {
		return nil, err
	}

	years, err := a.composeLevel(ctx, stationID, models.IntervalYear, months)
	if err != nil {
		return nil, err
	}

	decades, err := a.composeLevel(ctx, stationID, models.IntervalDecade, years)
	if err != nil {
		return nil, err
	}

	result := make([]*models.SummarizedMeasurement, 0,
		len(days)+len(months)+len(seasons)+len(years)+len(decades))
	result = append(result, days...)
	result = append(result, months...)
	result = append(result, seasons...)
	result = append(result, years...)
	result = append(result, decades...)
	return result, nil
}

// summarizeDays groups raw hours by calendar day and reduces each
// group on the pool.
func (a *Aggregator) summarizeDays(ctx context.Context, stationID string, hours []*models.HourlyObservation) ([]*models.SummarizedMeasurement, error) {
	groups := make(map[time.Time][]*models.HourlyObservation)
	intervals := make(map[time.Time]models.DateInterval)
	for _, obs := range hours {
		interval := models.DayOf(obs.MeasurementTime)
		key := interval.FirstDay
		groups[key] = append(groups[key], obs)
		intervals[key] = interval
	}

	tasks := make([]func() (*models.SummarizedMeasurement, error), 0, len(groups))
	for key := range groups {
		interval, group := intervals[key], groups[key]
		tasks = append(tasks, func() (*models.SummarizedMeasurement, error) {
			return summarizeDay(stationID, interval, group), nil
		})
	}

	return a.run(ctx, tasks)
}

// composeLevel groups the finer level's summaries into coarser
// intervals and composes each group on the pool. It acts as the
// barrier between levels: it only returns once every group is done.
func (a *Aggregator) composeLevel(ctx context.Context, stationID string, kind models.IntervalKind, finer []*models.SummarizedMeasurement) ([]*models.SummarizedMeasurement, error) {
	groups := make(map[time.Time][]*models.SummarizedMeasurement)
	intervals := make(map[time.Time]models.DateInterval)
	for _, child := range finer {
		interval := models.IntervalOf(child.Interval.FirstDay, kind)
		key := interval.FirstDay
		groups[key] = append(groups[key], child)
		intervals[key] = interval
	}

	tasks := make([]func() (*models.SummarizedMeasurement, error), 0, len(groups))
	for key := range groups {
		interval, group := intervals[key], groups[key]
		tasks = append(tasks, func() (*models.SummarizedMeasurement, error) {
			return compose(stationID, interval, group)
		})
	}

	return a.run(ctx, tasks)
}

// run executes the tasks under the shared worker bound and joins on
// all of them before returning. The first error wins; a nil error
// means every group of the level completed.
func (a *Aggregator) run(ctx context.Context, tasks []func() (*models.SummarizedMeasurement, error)) ([]*models.SummarizedMeasurement, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		results  []*models.SummarizedMeasurement
	)

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			break
		}

		wg.Add(1)
		a.slots <- struct{}{}
		go func(task func() (*models.SummarizedMeasurement, error)) {
			defer wg.Done()
			defer func() { <-a.slots }()

			s, err := task()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results = append(results, s)
		}(task)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Interval.FirstDay.Before(results[j].Interval.FirstDay)
	})
	return results, nil
}
