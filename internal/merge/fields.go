package merge

import (
	"fmt"

	"climate-platform/internal/models"
)

// fieldSetter parses one non-missing token and returns the assignment
// to perform on the observation. Parsing happens before the merger
// touches shared state, so a malformed row never leaves a half-written
// observation behind.
type fieldSetter func(pool *ValuePool, token string) (func(*models.HourlyObservation), error)

// fieldMapping binds a source column name to its target field.
type fieldMapping struct {
	Column string
	Apply  fieldSetter
}

// categoryFields is the static column-to-field table per measurement
// category. Each category writes its own disjoint subset of the hourly
// observation, so concurrent files never overwrite each other's fields.
var categoryFields = map[models.MeasurementCategory][]fieldMapping{
	models.CategoryAirTemperature: {
		{Column: "TT_TU", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.Temperature = v })},
		{Column: "RF_TU", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.Humidity = v })},
	},
	models.CategoryDewPoint: {
		{Column: "TD", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.DewPoint = v })},
	},
	models.CategoryCloudiness: {
		{Column: "V_N", Apply: setInt(func(o *models.HourlyObservation, v *int) { o.CloudCoverage = v })},
	},
	models.CategoryMaxWindGust: {
		{Column: "FX_911", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.MaxWindGust = v })},
	},
	models.CategoryMoisture: {
		{Column: "P_STD", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.AirPressure = v })},
	},
	models.CategorySunshine: {
		{Column: "SD_SO", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.SunshineMinutes = v })},
	},
	models.CategoryVisibility: {
		{Column: "V_VV", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.Visibility = v })},
	},
	models.CategoryWind: {
		{Column: "F", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.WindSpeed = v })},
		{Column: "D", Apply: setInt(func(o *models.HourlyObservation, v *int) { o.WindDirection = v })},
	},
	models.CategoryPrecipitation: {
		{Column: "R1", Apply: setFloat(func(o *models.HourlyObservation, v *float64) { o.Precipitation = v })},
		{Column: "WRTR", Apply: setPrecipitationType},
	},
}

func setFloat(assign func(*models.HourlyObservation, *float64)) fieldSetter {
	return func(pool *ValuePool, token string) (func(*models.HourlyObservation), error) {
		v, err := pool.Float(token)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", token, err)
		}
		return func(o *models.HourlyObservation) { assign(o, v) }, nil
	}
}

func setInt(assign func(*models.HourlyObservation, *int)) fieldSetter {
	return func(pool *ValuePool, token string) (func(*models.HourlyObservation), error) {
		v, err := pool.Int(token)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", token, err)
		}
		return func(o *models.HourlyObservation) { assign(o, v) }, nil
	}
}

func setPrecipitationType(pool *ValuePool, token string) (func(*models.HourlyObservation), error) {
	v, err := pool.PrecipitationType(token)
	if err != nil {
		return nil, fmt.Errorf("invalid precipitation form %q: %w", token, err)
	}
	return func(o *models.HourlyObservation) { o.PrecipitationType = v }, nil
}

// SchemaMismatchError reports a source file whose columns do not match
// the category's expected mapping. Fatal for that file only.
type SchemaMismatchError struct {
	Source models.SourceFile
	Column string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("source %s is missing expected column %s", e.Source, e.Column)
}

// IsTransient returns false; the remote file will not change shape.
func (e *SchemaMismatchError) IsTransient() bool {
	return false
}
