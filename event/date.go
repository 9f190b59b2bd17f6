package event

import (
	"fmt"
	"time"
)

// Date is a calendar date with no time-of-day or zone attached. All-day
// events are compared and advanced through this type so they can never
// be accidentally instant-compared; DST shifts cannot move a Date across
// a day boundary.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf reduces an instant to its calendar date in the given location.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t, time.UTC), nil
}

// Time returns midnight of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays advances the date by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n), time.UTC)
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time(time.UTC).Sub(d.Time(time.UTC)) / (24 * time.Hour))
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

func (d Date) Equal(other Date) bool {
	return d == other
}

// String formats the date as "2006-01-02".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ICalString formats the date in the RFC 5545 DATE form, "20060102".
func (d Date) ICalString() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}
