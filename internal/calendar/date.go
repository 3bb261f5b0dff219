// Package calendar implements the calendar aggregation and view engine:
// the event store, per-source visibility, date bucketing, month/week grids,
// the four view projections and the selection state that drives them.
//
// Everything in this package is pure and synchronous. Timestamps are
// classified by their wall-clock fields only, so callers are expected to
// have converted events into the display timezone before they reach the
// store.
package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time or zone. It is the bucketing key for
// month, week and day views.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DayKey classifies a timestamp into the calendar day of its wall clock.
func DayKey(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// HourOfDay returns the wall-clock hour of t, 0..23.
func HourOfDay(t time.Time) int {
	return t.Hour()
}

// NewDate builds a normalized Date; out-of-range values roll over the same
// way time.Date does (e.g. Feb 30 becomes Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	return DayKey(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DayKey(t), nil
}

// noon anchors date arithmetic in UTC at midday so that no DST transition
// can move the result onto a neighbouring day.
func (d Date) noon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns d shifted by n days, normalising month and year overflow.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// AddMonths shifts the first day of d's month by n months. The result is
// always day 1, which keeps month navigation free of month-length overflow.
func (d Date) AddMonths(n int) Date {
	return NewDate(d.Year, d.Month+time.Month(n), 1)
}

// FirstOfMonth returns day 1 of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// Weekday returns the day of the week d falls on.
func (d Date) Weekday() time.Weekday {
	return d.noon().Weekday()
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.noon().Before(o.noon())
}

// SameMonth reports whether d and o share year and month.
func (d Date) SameMonth(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month
}

// In returns local midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return d.noon().Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
