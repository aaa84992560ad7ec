package circulation

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidDateString = errors.New("date string is not a valid YYYY-MM-DD date")

// Date is a calendar date with day granularity and no time-of-day or
// timezone component. The zero value means "no date" (an open loan's
// return date). Dates are persisted in their sortable textual form.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate builds a Date from its calendar components.
// Out-of-range components are normalized the way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DateOf truncates an instant to the calendar date in the instant's location.
func DateOf(t time.Time) Date {
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// ParseDate parses the sortable textual encoding, e.g. "2025-11-03".
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, errors.Join(ErrInvalidDateString, err)
	}

	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and fixtures; it panics on
// malformed input.
func MustParseDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}

	return d
}

// IsZero reports whether d is the zero Date ("no date").
func (d Date) IsZero() bool {
	return d == Date{}
}

// String returns the sortable textual encoding, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}

	return d.toTime().Format(dateLayout)
}

// AddDays returns the date n calendar days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.toTime().AddDate(0, 0, n))
}

// DaysSince returns the number of calendar days from other to d.
// It is positive when d is after other, independent of elapsed time-of-day.
func (d Date) DaysSince(other Date) int {
	return int(d.toTime().Sub(other.toTime()) / (24 * time.Hour))
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.toTime().Before(other.toTime())
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return d.toTime().After(other.toTime())
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return d.toTime()
}

func (d Date) toTime() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}
