package models

import "time"

// AggregatedValues carries the composable statistics for one measured
// quantity over one interval. Sum and Count are kept alongside the
// derived average so coarser levels compose from exact sums instead of
// re-averaging already-rounded averages.
type AggregatedValues struct {
	Min    *float64   `json:"min,omitempty"`
	MinDay *time.Time `json:"min_day,omitempty"`
	Max    *float64   `json:"max,omitempty"`
	MaxDay *time.Time `json:"max_day,omitempty"`
	Sum    *float64   `json:"sum,omitempty"`
	Count  int        `json:"count"`
}

// Avg returns sum-of-present divided by count-of-present, or nil when
// every value in the group was missing.
func (a *AggregatedValues) Avg() *float64 {
	if a.Sum == nil || a.Count == 0 {
		return nil
	}
	avg := *a.Sum / float64(a.Count)
	return &avg
}

// Observe folds one optional hourly value measured on the given day
// into the aggregate. Missing values are ignored entirely; an
// all-missing group stays missing rather than becoming zero.
func (a *AggregatedValues) Observe(v *float64, measuredOn time.Time) {
	if v == nil {
		return
	}
	d := DayOf(measuredOn).FirstDay
	if a.Min == nil || *v < *a.Min {
		val := *v
		a.Min = &val
		a.MinDay = &d
	}
	if a.Max == nil || *v > *a.Max {
		val := *v
		a.Max = &val
		a.MaxDay = &d
	}
	if a.Sum == nil {
		a.Sum = new(float64)
	}
	*a.Sum += *v
	a.Count++
}

// Merge folds a finer-level aggregate into this one. Day attribution
// of min and max propagates transitively: a year's maximum day is the
// day the finest-grained maximum occurred on.
func (a *AggregatedValues) Merge(other AggregatedValues) {
	if other.Min != nil && (a.Min == nil || *other.Min < *a.Min) {
		val := *other.Min
		a.Min = &val
		a.MinDay = other.MinDay
	}
	if other.Max != nil && (a.Max == nil || *other.Max > *a.Max) {
		val := *other.Max
		a.Max = &val
		a.MaxDay = other.MaxDay
	}
	if other.Sum != nil {
		if a.Sum == nil {
			a.Sum = new(float64)
		}
		*a.Sum += *other.Sum
	}
	a.Count += other.Count
}

// CloudCoverageHistogram counts hourly coverage readings per discrete
// category: buckets 0-8 are oktas, bucket 9 is "sky not visible" and
// bucket 10 is "not measured".
type CloudCoverageHistogram [11]int64

// Bucket indices beyond the 0-8 okta range.
const (
	CloudBucketNotVisible  = 9
	CloudBucketNotMeasured = 10
)

// Observe folds one optional coverage code into the histogram.
func (h *CloudCoverageHistogram) Observe(coverage *int) {
	switch {
	case coverage == nil:
		h[CloudBucketNotMeasured]++
	case *coverage == CloudCoverageNotVisible:
		h[CloudBucketNotVisible]++
	case *coverage >= 0 && *coverage <= 8:
		h[*coverage]++
	default:
		h[CloudBucketNotMeasured]++
	}
}

// Merge adds another histogram elementwise. Coarser levels reuse the
// finer-level counts instead of rescanning raw observations.
func (h *CloudCoverageHistogram) Merge(other CloudCoverageHistogram) {
	for i, n := range other {
		h[i] += n
	}
}

// Total returns the number of observations accounted for.
func (h CloudCoverageHistogram) Total() int64 {
	var total int64
	for _, n := range h {
		total += n
	}
	return total
}

// Measured returns the count of readings with an actual okta value.
func (h CloudCoverageHistogram) Measured() int64 {
	var total int64
	for i := 0; i <= 8; i++ {
		total += h[i]
	}
	return total
}

// SummarizedMeasurement aggregates the observations (or finer-level
// summaries) of one station falling into one DateInterval. Created
// once per (station, interval); never mutated after creation.
type SummarizedMeasurement struct {
	StationID       string                 `json:"station_id"`
	Interval        DateInterval           `json:"interval"`
	Temperature     AggregatedValues       `json:"temperature"`
	DewPoint        AggregatedValues       `json:"dew_point"`
	Humidity        AggregatedValues       `json:"humidity"`
	AirPressure     AggregatedValues       `json:"air_pressure"`
	WindSpeed       AggregatedValues       `json:"wind_speed"`
	Visibility      AggregatedValues       `json:"visibility"`
	SunshineMinutes AggregatedValues       `json:"sunshine_minutes"`
	Rainfall        AggregatedValues       `json:"rainfall"`
	Snowfall        AggregatedValues       `json:"snowfall"`
	CloudCoverage   CloudCoverageHistogram `json:"cloud_coverage"`
	CreatedAt       time.Time              `json:"created_at"`
}
