package models

import "time"

// IntervalKind is the granularity at which summaries are computed.
type IntervalKind int

const (
	IntervalDay IntervalKind = iota
	IntervalMonth
	IntervalSeason
	IntervalYear
	IntervalDecade
)

func (k IntervalKind) String() string {
	switch k {
	case IntervalDay:
		return "day"
	case IntervalMonth:
		return "month"
	case IntervalSeason:
		return "season"
	case IntervalYear:
		return "year"
	case IntervalDecade:
		return "decade"
	default:
		return "unknown"
	}
}

// Finer returns the next finer granularity a summary of this kind is
// composed from. Season and year summaries both compose from months.
func (k IntervalKind) Finer() IntervalKind {
	switch k {
	case IntervalMonth:
		return IntervalDay
	case IntervalSeason, IntervalYear:
		return IntervalMonth
	case IntervalDecade:
		return IntervalYear
	default:
		return IntervalDay
	}
}

// DateInterval is a closed [FirstDay, LastDay] grouping key at day
// granularity. Immutable value type; computed deterministically from a
// timestamp by the interval functions below.
type DateInterval struct {
	FirstDay time.Time    `json:"first_day" db:"first_day"`
	LastDay  time.Time    `json:"last_day" db:"last_day"`
	Kind     IntervalKind `json:"kind" db:"interval_kind"`
}

// Contains reports whether t falls inside the interval.
func (i DateInterval) Contains(t time.Time) bool {
	d := DayOf(t).FirstDay
	return !d.Before(i.FirstDay) && !d.After(i.LastDay)
}

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// DayOf floors a timestamp to its calendar day.
func DayOf(t time.Time) DateInterval {
	t = t.UTC()
	d := day(t.Year(), t.Month(), t.Day())
	return DateInterval{FirstDay: d, LastDay: d, Kind: IntervalDay}
}

// MonthOf floors a timestamp to its calendar month.
func MonthOf(t time.Time) DateInterval {
	t = t.UTC()
	first := day(t.Year(), t.Month(), 1)
	return DateInterval{
		FirstDay: first,
		LastDay:  first.AddDate(0, 1, -1),
		Kind:     IntervalMonth,
	}
}

// SeasonOf maps a timestamp to its meteorological season. December
// belongs to the winter of the following year, so the winter interval
// runs from December 1 through the last day of February.
func SeasonOf(t time.Time) DateInterval {
	t = t.UTC()
	year := t.Year()
	var first time.Time
	switch t.Month() {
	case time.December:
		first = day(year, time.December, 1)
	case time.January, time.February:
		first = day(year-1, time.December, 1)
	case time.March, time.April, time.May:
		first = day(year, time.March, 1)
	case time.June, time.July, time.August:
		first = day(year, time.June, 1)
	default:
		first = day(year, time.September, 1)
	}
	return DateInterval{
		FirstDay: first,
		LastDay:  first.AddDate(0, 3, -1),
		Kind:     IntervalSeason,
	}
}

// YearOf floors a timestamp to its calendar year.
func YearOf(t time.Time) DateInterval {
	t = t.UTC()
	return DateInterval{
		FirstDay: day(t.Year(), time.January, 1),
		LastDay:  day(t.Year(), time.December, 31),
		Kind:     IntervalYear,
	}
}

// DecadeOf floors a timestamp to its decade boundary (e.g. 1987 -> 1980).
func DecadeOf(t time.Time) DateInterval {
	t = t.UTC()
	start := t.Year() - t.Year()%10
	return DateInterval{
		FirstDay: day(start, time.January, 1),
		LastDay:  day(start+9, time.December, 31),
		Kind:     IntervalDecade,
	}
}

// IntervalOf dispatches to the grouping function for the given kind.
func IntervalOf(t time.Time, kind IntervalKind) DateInterval {
	switch kind {
	case IntervalDay:
		return DayOf(t)
	case IntervalMonth:
		return MonthOf(t)
	case IntervalSeason:
		return SeasonOf(t)
	case IntervalYear:
		return YearOf(t)
	default:
		return DecadeOf(t)
	}
}
