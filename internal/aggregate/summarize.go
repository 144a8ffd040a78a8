// Package aggregate computes multi-resolution statistical summaries of
// hourly observations. Day summaries are built from raw hours; every
// coarser granularity composes from the previous level's summaries so
// histograms and day attribution of extremes are reused, never
// recomputed from raw data.
package aggregate

import (
	"fmt"
	"time"

	"climate-platform/internal/models"
)

// InvariantViolationError reports a coarser-level group built on input
// of the wrong granularity. This is an ordering bug in the caller, not
// bad data, and must surface loudly.
type InvariantViolationError struct {
	StationID string
	Expected  models.IntervalKind
	Got       models.IntervalKind
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("station %s: %s summaries must compose from %s summaries, got %s",
		e.StationID, e.Expected, e.Expected.Finer(), e.Got)
}

// summarizeDay folds one day's hourly observations into a summary.
func summarizeDay(stationID string, interval models.DateInterval, hours []*models.HourlyObservation) *models.SummarizedMeasurement {
	s := &models.SummarizedMeasurement{
		StationID: stationID,
		Interval:  interval,
		CreatedAt: time.Now().UTC(),
	}

	for _, obs := range hours {
		ts := obs.MeasurementTime
		s.Temperature.Observe(obs.Temperature, ts)
		s.DewPoint.Observe(obs.DewPoint, ts)
		s.Humidity.Observe(obs.Humidity, ts)
		s.AirPressure.Observe(obs.AirPressure, ts)
		s.WindSpeed.Observe(obs.WindSpeed, ts)
		s.Visibility.Observe(obs.Visibility, ts)
		s.SunshineMinutes.Observe(obs.SunshineMinutes, ts)
		s.CloudCoverage.Observe(obs.CloudCoverage)

		rain, snow := splitPrecipitation(obs)
		s.Rainfall.Observe(rain, ts)
		s.Snowfall.Observe(snow, ts)
	}

	return s
}

// splitPrecipitation attributes a measured hourly amount to rainfall
// and snowfall by its WRTR form code. A measured zero stays a zero in
// both sums; a missing amount contributes to neither, keeping "no rain
// fell" distinct from "no data". Sleet carries the full amount on both
// sides since the water cannot be split; an amount whose form code is
// missing or does not identify solid precipitation counts as liquid.
func splitPrecipitation(obs *models.HourlyObservation) (rain, snow *float64) {
	if obs.Precipitation == nil {
		return nil, nil
	}

	amount := *obs.Precipitation
	zero := 0.0
	rain, snow = &zero, &zero

	if form := obs.PrecipitationType; form != nil && form.IsSnow() {
		snow = &amount
		if form.IsRain() {
			rain = &amount
		}
	} else {
		rain = &amount
	}
	return rain, snow
}

// compose folds finer-level summaries of one group into a coarser one.
// Sums and valid counts merge exactly, so the coarser average equals a
// single weighted-by-count computation over the underlying hours.
func compose(stationID string, interval models.DateInterval, finer []*models.SummarizedMeasurement) (*models.SummarizedMeasurement, error) {
	s := &models.SummarizedMeasurement{
		StationID: stationID,
		Interval:  interval,
		CreatedAt: time.Now().UTC(),
	}

	for _, child := range finer {
		if child.Interval.Kind != interval.Kind.Finer() {
			return nil, &InvariantViolationError{
				StationID: stationID,
				Expected:  interval.Kind,
				Got:       child.Interval.Kind,
			}
		}

		s.Temperature.Merge(child.Temperature)
		s.DewPoint.Merge(child.DewPoint)
		s.Humidity.Merge(child.Humidity)
		s.AirPressure.Merge(child.AirPressure)
		s.WindSpeed.Merge(child.WindSpeed)
		s.Visibility.Merge(child.Visibility)
		s.SunshineMinutes.Merge(child.SunshineMinutes)
		s.Rainfall.Merge(child.Rainfall)
		s.Snowfall.Merge(child.Snowfall)
		s.CloudCoverage.Merge(child.CloudCoverage)
	}

	return s, nil
}
