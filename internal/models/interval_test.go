package models

import (
	"testing"
	"time"
)

func date(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func TestIntervalFunctions(t *testing.T) {
	ts := time.Date(2020, time.July, 14, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		kind      IntervalKind
		input     time.Time
		wantFirst time.Time
		wantLast  time.Time
	}{
		{
			name:      "day floors to midnight",
			kind:      IntervalDay,
			input:     ts,
			wantFirst: date(2020, time.July, 14),
			wantLast:  date(2020, time.July, 14),
		},
		{
			name:      "month spans calendar month",
			kind:      IntervalMonth,
			input:     ts,
			wantFirst: date(2020, time.July, 1),
			wantLast:  date(2020, time.July, 31),
		},
		{
			name:      "february month end in leap year",
			kind:      IntervalMonth,
			input:     date(2020, time.February, 15),
			wantFirst: date(2020, time.February, 1),
			wantLast:  date(2020, time.February, 29),
		},
		{
			name:      "summer season",
			kind:      IntervalSeason,
			input:     ts,
			wantFirst: date(2020, time.June, 1),
			wantLast:  date(2020, time.August, 31),
		},
		{
			name:      "december starts the following winter",
			kind:      IntervalSeason,
			input:     date(2019, time.December, 31),
			wantFirst: date(2019, time.December, 1),
			wantLast:  date(2020, time.February, 29),
		},
		{
			name:      "january belongs to the winter started last december",
			kind:      IntervalSeason,
			input:     date(2020, time.January, 10),
			wantFirst: date(2019, time.December, 1),
			wantLast:  date(2020, time.February, 29),
		},
		{
			name:      "february belongs to the winter started last december",
			kind:      IntervalSeason,
			input:     date(2021, time.February, 28),
			wantFirst: date(2020, time.December, 1),
			wantLast:  date(2021, time.February, 28),
		},
		{
			name:      "autumn season",
			kind:      IntervalSeason,
			input:     date(2020, time.October, 1),
			wantFirst: date(2020, time.September, 1),
			wantLast:  date(2020, time.November, 30),
		},
		{
			name:      "year spans calendar year",
			kind:      IntervalYear,
			input:     ts,
			wantFirst: date(2020, time.January, 1),
			wantLast:  date(2020, time.December, 31),
		},
		{
			name:      "decade floors to decade boundary",
			kind:      IntervalDecade,
			input:     date(1987, time.May, 3),
			wantFirst: date(1980, time.January, 1),
			wantLast:  date(1989, time.December, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntervalOf(tt.input, tt.kind)

			if got.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if !got.FirstDay.Equal(tt.wantFirst) {
				t.Errorf("FirstDay = %v, want %v", got.FirstDay, tt.wantFirst)
			}
			if !got.LastDay.Equal(tt.wantLast) {
				t.Errorf("LastDay = %v, want %v", got.LastDay, tt.wantLast)
			}
			if !got.Contains(tt.input) {
				t.Errorf("interval %v..%v should contain %v", got.FirstDay, got.LastDay, tt.input)
			}
		})
	}
}

func TestIntervalOfIsDeterministic(t *testing.T) {
	ts := time.Date(2020, time.December, 1, 5, 0, 0, 0, time.UTC)
	for _, kind := range []IntervalKind{IntervalDay, IntervalMonth, IntervalSeason, IntervalYear, IntervalDecade} {
		a := IntervalOf(ts, kind)
		b := IntervalOf(ts, kind)
		if a != b {
			t.Errorf("IntervalOf(%v, %v) not deterministic: %v vs %v", ts, kind, a, b)
		}
	}
}

func TestIntervalKindFiner(t *testing.T) {
	tests := []struct {
		kind IntervalKind
		want IntervalKind
	}{
		{IntervalMonth, IntervalDay},
		{IntervalSeason, IntervalMonth},
		{IntervalYear, IntervalMonth},
		{IntervalDecade, IntervalYear},
	}

	for _, tt := range tests {
		if got := tt.kind.Finer(); got != tt.want {
			t.Errorf("%v.Finer() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestDateIntervalContains(t *testing.T) {
	month := MonthOf(date(2020, time.March, 1))

	if !month.Contains(time.Date(2020, time.March, 31, 23, 0, 0, 0, time.UTC)) {
		t.Error("last day of the month should be inside the interval")
	}
	if month.Contains(date(2020, time.April, 1)) {
		t.Error("first day of the next month should be outside the interval")
	}
	if month.Contains(date(2020, time.February, 29)) {
		t.Error("last day of the previous month should be outside the interval")
	}
}
