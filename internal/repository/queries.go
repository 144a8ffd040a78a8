package repository

import (
	"context"
	"fmt"
	"time"

	"climate-platform/internal/models"
)

// GetObservations retrieves hourly observations with filtering and
// pagination.
func (r *climateRepository) GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.HourlyObservation, int, error) {
	query := `
		SELECT station_id, measurement_time,
		       temperature_celsius, humidity_percent, dew_point_celsius,
		       cloud_coverage_octas, air_pressure_hpa,
		       precipitation_mm, precipitation_type, sunshine_minutes,
		       wind_speed_ms, max_wind_gust_ms, wind_direction_deg,
		       visibility_m, created_at
		FROM hourly_observations
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StationID != nil {
		query += fmt.Sprintf(" AND station_id = $%d", argNum)
		args = append(args, *filter.StationID)
		argNum++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND measurement_time >= $%d", argNum)
		args = append(args, *filter.From)
		argNum++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND measurement_time <= $%d", argNum)
		args = append(args, *filter.To)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_observations", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count observations: %w", err)
	}

	query += " ORDER BY measurement_time, station_id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var observations []*models.HourlyObservation
	if err := r.db.SelectContext(ctx, "get_observations", &observations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get observations: %w", err)
	}

	return observations, totalCount, nil
}

// summaryRow is the flat database shape of a SummarizedMeasurement.
type summaryRow struct {
	StationID    string    `db:"station_id"`
	IntervalKind string    `db:"interval_kind"`
	FirstDay     time.Time `db:"first_day"`
	LastDay      time.Time `db:"last_day"`

	TemperatureMin    *float64   `db:"temperature_min"`
	TemperatureAvg    *float64   `db:"temperature_avg"`
	TemperatureMax    *float64   `db:"temperature_max"`
	TemperatureMinDay *time.Time `db:"temperature_min_day"`
	TemperatureMaxDay *time.Time `db:"temperature_max_day"`
	TemperatureSum    *float64   `db:"temperature_sum"`
	TemperatureCount  int        `db:"temperature_count"`

	DewPointMin    *float64   `db:"dew_point_min"`
	DewPointAvg    *float64   `db:"dew_point_avg"`
	DewPointMax    *float64   `db:"dew_point_max"`
	DewPointMinDay *time.Time `db:"dew_point_min_day"`
	DewPointMaxDay *time.Time `db:"dew_point_max_day"`
	DewPointSum    *float64   `db:"dew_point_sum"`
	DewPointCount  int        `db:"dew_point_count"`

	HumidityMin    *float64   `db:"humidity_min"`
	HumidityAvg    *float64   `db:"humidity_avg"`
	HumidityMax    *float64   `db:"humidity_max"`
	HumidityMinDay *time.Time `db:"humidity_min_day"`
	HumidityMaxDay *time.Time `db:"humidity_max_day"`
	HumiditySum    *float64   `db:"humidity_sum"`
	HumidityCount  int        `db:"humidity_count"`

	PressureMin    *float64   `db:"pressure_min"`
	PressureAvg    *float64   `db:"pressure_avg"`
	PressureMax    *float64   `db:"pressure_max"`
	PressureMinDay *time.Time `db:"pressure_min_day"`
	PressureMaxDay *time.Time `db:"pressure_max_day"`
	PressureSum    *float64   `db:"pressure_sum"`
	PressureCount  int        `db:"pressure_count"`

	WindSpeedAvg    *float64   `db:"wind_speed_avg"`
	WindSpeedMax    *float64   `db:"wind_speed_max"`
	WindSpeedMaxDay *time.Time `db:"wind_speed_max_day"`
	WindSpeedSum    *float64   `db:"wind_speed_sum"`
	WindSpeedCount  int        `db:"wind_speed_count"`

	VisibilityMin   *float64 `db:"visibility_min"`
	VisibilityAvg   *float64 `db:"visibility_avg"`
	VisibilityMax   *float64 `db:"visibility_max"`
	VisibilitySum   *float64 `db:"visibility_sum"`
	VisibilityCount int      `db:"visibility_count"`

	SunshineSum   *float64 `db:"sunshine_sum"`
	SunshineCount int      `db:"sunshine_count"`
	RainfallSum   *float64 `db:"rainfall_sum"`
	RainfallCount int      `db:"rainfall_count"`
	SnowfallSum   *float64 `db:"snowfall_sum"`
	SnowfallCount int      `db:"snowfall_count"`

	CloudOctas0      int64 `db:"cloud_octas_0"`
	CloudOctas1      int64 `db:"cloud_octas_1"`
	CloudOctas2      int64 `db:"cloud_octas_2"`
	CloudOctas3      int64 `db:"cloud_octas_3"`
	CloudOctas4      int64 `db:"cloud_octas_4"`
	CloudOctas5      int64 `db:"cloud_octas_5"`
	CloudOctas6      int64 `db:"cloud_octas_6"`
	CloudOctas7      int64 `db:"cloud_octas_7"`
	CloudOctas8      int64 `db:"cloud_octas_8"`
	CloudNotVisible  int64 `db:"cloud_not_visible"`
	CloudNotMeasured int64 `db:"cloud_not_measured"`

	CreatedAt time.Time `db:"created_at"`
}

// GetSummaries retrieves interval summaries with filtering and
// pagination.
func (r *climateRepository) GetSummaries(ctx context.Context, filter SummaryFilter) ([]*models.SummarizedMeasurement, int, error) {
	query := `
		SELECT *
		FROM measurement_summaries
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StationID != nil {
		query += fmt.Sprintf(" AND station_id = $%d", argNum)
		args = append(args, *filter.StationID)
		argNum++
	}

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND interval_kind = $%d", argNum)
		args = append(args, filter.Kind.String())
		argNum++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND first_day >= $%d", argNum)
		args = append(args, *filter.From)
		argNum++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND first_day <= $%d", argNum)
		args = append(args, *filter.To)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_summaries", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count summaries: %w", err)
	}

	query += " ORDER BY first_day, station_id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []*summaryRow
	if err := r.db.SelectContext(ctx, "get_summaries", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get summaries: %w", err)
	}

	summaries := make([]*models.SummarizedMeasurement, len(rows))
	for i, row := range rows {
		summaries[i] = row.toModel()
	}
	return summaries, totalCount, nil
}

func kindFromString(name string) models.IntervalKind {
	switch name {
	case "day":
		return models.IntervalDay
	case "month":
		return models.IntervalMonth
	case "season":
		return models.IntervalSeason
	case "year":
		return models.IntervalYear
	default:
		return models.IntervalDecade
	}
}

func (row *summaryRow) toModel() *models.SummarizedMeasurement {
	return &models.SummarizedMeasurement{
		StationID: row.StationID,
		Interval: models.DateInterval{
			FirstDay: row.FirstDay,
			LastDay:  row.LastDay,
			Kind:     kindFromString(row.IntervalKind),
		},
		Temperature: models.AggregatedValues{
			Min: row.TemperatureMin, MinDay: row.TemperatureMinDay,
			Max: row.TemperatureMax, MaxDay: row.TemperatureMaxDay,
			Sum: row.TemperatureSum, Count: row.TemperatureCount,
		},
		DewPoint: models.AggregatedValues{
			Min: row.DewPointMin, MinDay: row.DewPointMinDay,
			Max: row.DewPointMax, MaxDay: row.DewPointMaxDay,
			Sum: row.DewPointSum, Count: row.DewPointCount,
		},
		Humidity: models.AggregatedValues{
			Min: row.HumidityMin, MinDay: row.HumidityMinDay,
			Max: row.HumidityMax, MaxDay: row.HumidityMaxDay,
			Sum: row.HumiditySum, Count: row.HumidityCount,
		},
		AirPressure: models.AggregatedValues{
			Min: row.PressureMin, MinDay: row.PressureMinDay,
			Max: row.PressureMax, MaxDay: row.PressureMaxDay,
			Sum: row.PressureSum, Count: row.PressureCount,
		},
		WindSpeed: models.AggregatedValues{
			Max: row.WindSpeedMax, MaxDay: row.WindSpeedMaxDay,
			Sum: row.WindSpeedSum, Count: row.WindSpeedCount,
		},
		Visibility: models.AggregatedValues{
			Min: row.VisibilityMin, Max: row.VisibilityMax,
			Sum: row.VisibilitySum, Count: row.VisibilityCount,
		},
		SunshineMinutes: models.AggregatedValues{Sum: row.SunshineSum, Count: row.SunshineCount},
		Rainfall:        models.AggregatedValues{Sum: row.RainfallSum, Count: row.RainfallCount},
		Snowfall:        models.AggregatedValues{Sum: row.SnowfallSum, Count: row.SnowfallCount},
		CloudCoverage: models.CloudCoverageHistogram{
			row.CloudOctas0, row.CloudOctas1, row.CloudOctas2, row.CloudOctas3,
			row.CloudOctas4, row.CloudOctas5, row.CloudOctas6, row.CloudOctas7,
			row.CloudOctas8, row.CloudNotVisible, row.CloudNotMeasured,
		},
		CreatedAt: row.CreatedAt,
	}
}
