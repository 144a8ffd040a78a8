package models

import (
	"fmt"
	"time"
)

// MeasurementCategory identifies one kind of source file. Each category
// contributes a disjoint subset of fields to an hourly observation.
type MeasurementCategory int

const (
	CategoryAirTemperature MeasurementCategory = iota // TU: temperature + relative humidity
	CategoryDewPoint                                  // TD
	CategoryCloudiness                                // N
	CategoryMaxWindGust                               // FX
	CategoryMoisture                                  // TF: pressure / moisture
	CategorySunshine                                  // SD
	CategoryVisibility                                // VV
	CategoryWind                                      // FF: speed + direction
	CategoryPrecipitation                             // RR
)

// AllCategories lists every measurement category in a stable order.
var AllCategories = []MeasurementCategory{
	CategoryAirTemperature,
	CategoryDewPoint,
	CategoryCloudiness,
	CategoryMaxWindGust,
	CategoryMoisture,
	CategorySunshine,
	CategoryVisibility,
	CategoryWind,
	CategoryPrecipitation,
}

// Code returns the DWD abbreviation used in archive file names.
func (c MeasurementCategory) Code() string {
	switch c {
	case CategoryAirTemperature:
		return "TU"
	case CategoryDewPoint:
		return "TD"
	case CategoryCloudiness:
		return "N"
	case CategoryMaxWindGust:
		return "FX"
	case CategoryMoisture:
		return "TF"
	case CategorySunshine:
		return "SD"
	case CategoryVisibility:
		return "VV"
	case CategoryWind:
		return "FF"
	case CategoryPrecipitation:
		return "RR"
	default:
		return "??"
	}
}

func (c MeasurementCategory) String() string {
	switch c {
	case CategoryAirTemperature:
		return "air_temperature"
	case CategoryDewPoint:
		return "dew_point"
	case CategoryCloudiness:
		return "cloudiness"
	case CategoryMaxWindGust:
		return "extreme_wind"
	case CategoryMoisture:
		return "moisture"
	case CategorySunshine:
		return "sun"
	case CategoryVisibility:
		return "visibility"
	case CategoryWind:
		return "wind"
	case CategoryPrecipitation:
		return "precipitation"
	default:
		return "unknown"
	}
}

// CategoryFromCode maps a DWD file-name abbreviation back to its category.
func CategoryFromCode(code string) (MeasurementCategory, bool) {
	for _, c := range AllCategories {
		if c.Code() == code {
			return c, true
		}
	}
	return 0, false
}

// SourceFile describes one downloadable archive discovered by the catalog.
type SourceFile struct {
	StationID  string
	Category   MeasurementCategory
	Historical bool
	URL        string
}

func (f SourceFile) String() string {
	span := "recent"
	if f.Historical {
		span = "historical"
	}
	return fmt.Sprintf("%s/%s/%s", f.StationID, f.Category, span)
}

// PrecipitationType is the WRTR precipitation-form code from the
// precipitation files.
type PrecipitationType int

const (
	PrecipitationNone          PrecipitationType = 0 // no precipitation
	PrecipitationRainOnly      PrecipitationType = 1 // only rain (pre-1979 coding)
	PrecipitationUnknownForm   PrecipitationType = 4
	PrecipitationRain          PrecipitationType = 6
	PrecipitationSnow          PrecipitationType = 7
	PrecipitationSleet         PrecipitationType = 8 // rain and snow mixed
	PrecipitationNotMeasurable PrecipitationType = 9
)

// IsRain reports whether the code describes liquid precipitation.
func (p PrecipitationType) IsRain() bool {
	return p == PrecipitationRainOnly || p == PrecipitationRain || p == PrecipitationSleet
}

// IsSnow reports whether the code describes solid precipitation.
func (p PrecipitationType) IsSnow() bool {
	return p == PrecipitationSnow || p == PrecipitationSleet
}

// ParsePrecipitationType validates a raw WRTR code.
func ParsePrecipitationType(code int) (PrecipitationType, error) {
	switch PrecipitationType(code) {
	case PrecipitationNone, PrecipitationRainOnly, PrecipitationUnknownForm,
		PrecipitationRain, PrecipitationSnow, PrecipitationSleet,
		PrecipitationNotMeasurable:
		return PrecipitationType(code), nil
	}
	return 0, fmt.Errorf("unknown precipitation form code %d", code)
}

// CloudCoverageNotVisible is the coverage code reported when the sky was
// not observable (fog, darkness). Coverage is otherwise 0-8 oktas.
const CloudCoverageNotVisible = -1

// HourlyObservation is the merge target for one station and hour.
// Each measurement category fills its own subset of fields; a nil
// pointer means the value was missing in the source. NULL values are
// represented as pointers, matching the -999 sentinel handling of the
// source files.
type HourlyObservation struct {
	StationID         string             `json:"station_id" db:"station_id"`
	MeasurementTime   time.Time          `json:"measurement_time" db:"measurement_time"`
	Temperature       *float64           `json:"temperature_celsius,omitempty" db:"temperature_celsius"`
	Humidity          *float64           `json:"humidity_percent,omitempty" db:"humidity_percent"`
	DewPoint          *float64           `json:"dew_point_celsius,omitempty" db:"dew_point_celsius"`
	CloudCoverage     *int               `json:"cloud_coverage_octas,omitempty" db:"cloud_coverage_octas"`
	AirPressure       *float64           `json:"air_pressure_hpa,omitempty" db:"air_pressure_hpa"`
	Precipitation     *float64           `json:"precipitation_mm,omitempty" db:"precipitation_mm"`
	PrecipitationType *PrecipitationType `json:"precipitation_type,omitempty" db:"precipitation_type"`
	SunshineMinutes   *float64           `json:"sunshine_minutes,omitempty" db:"sunshine_minutes"`
	WindSpeed         *float64           `json:"wind_speed_ms,omitempty" db:"wind_speed_ms"`
	MaxWindGust       *float64           `json:"max_wind_gust_ms,omitempty" db:"max_wind_gust_ms"`
	WindDirection     *int               `json:"wind_direction_deg,omitempty" db:"wind_direction_deg"`
	Visibility        *float64           `json:"visibility_m,omitempty" db:"visibility_m"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// MeasurementTimeLayout is the timestamp format of the MESS_DATUM column.
const MeasurementTimeLayout = "2006010215"

// ParseMeasurementTime parses a MESS_DATUM token (yyyyMMddHH, UTC).
func ParseMeasurementTime(token string) (time.Time, error) {
	t, err := time.ParseInLocation(MeasurementTimeLayout, token, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "MESS_DATUM",
			Value:   token,
			Message: "invalid measurement time, expected yyyyMMddHH",
		}
	}
	return t, nil
}

// ValidationError represents a data validation error.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
