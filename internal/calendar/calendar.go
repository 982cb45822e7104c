package calendar

import (
	"fmt"
	"time"
)

// Day is a civil calendar date with no time-of-day or location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// dayLayout is the ISO 8601 calendar date layout used for keys and storage.
const dayLayout = "2006-01-02"

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.midnightUTC().Format(dayLayout)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return dayOf(d.midnightUTC().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return DaysBetween(d, other) > 0
}

// midnightUTC anchors the day in UTC so that day arithmetic never crosses a
// DST transition.
func (d Day) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return dayOf(t), nil
}

// MarshalText encodes the day as YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD day.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of calendar days from a to b. It is
// positive when b is later than a.
func DaysBetween(a, b Day) int {
	return int(b.midnightUTC().Sub(a.midnightUTC()).Hours() / 24)
}

func dayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Calendar maps instants to calendar days in a fixed location. The zero
// value uses UTC.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for loc. A nil location means UTC.
func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayOf returns the calendar day containing t.
func (c Calendar) DayOf(t time.Time) Day {
	return dayOf(t.In(c.Location()))
}

// StartOfDay returns midnight of the day containing t, in the calendar's location.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	d := c.DayOf(t)
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, c.Location())
}

// DaysBetween returns the number of calendar days between the days containing a and b.
func (c Calendar) DaysBetween(a, b time.Time) int {
	return DaysBetween(c.DayOf(a), c.DayOf(b))
}
