package calendar

import "time"

const (
	MonthGridCells = 42
	DaysPerWeek    = 7
	HoursPerDay    = 24
)

// GridCell is one day of a month or week grid. IsToday and IsSelected are
// filled in at projection time and are always false straight out of the
// builder.
type GridCell struct {
	Date              Date `json:"date"`
	InReferencePeriod bool `json:"in_reference_period"`
	IsToday           bool `json:"is_today"`
	IsSelected        bool `json:"is_selected"`
}

// GridBuilder lays out grid skeletons. The zero value starts weeks on
// Sunday.
type GridBuilder struct {
	WeekStart time.Weekday
}

// WeekStartOf returns the week-start day on or before d.
func (b GridBuilder) WeekStartOf(d Date) Date {
	offset := (int(d.Weekday()) - int(b.WeekStart) + DaysPerWeek) % DaysPerWeek
	return d.AddDays(-offset)
}

// MonthGrid returns exactly 42 consecutive days covering the month of ref:
// trailing days of the previous month, the whole month, then leading days of
// the following month(s). Only days of ref's month are in the reference
// period.
func (b GridBuilder) MonthGrid(ref Date) []GridCell {
	first := ref.FirstOfMonth()
	start := b.WeekStartOf(first)

	cells := make([]GridCell, MonthGridCells)
	for i := range cells {
		d := start.AddDays(i)
		cells[i] = GridCell{
			Date:              d,
			InReferencePeriod: d.SameMonth(first),
		}
	}
	return cells
}

// WeekGrid returns the 7 days of the week containing ref.
func (b GridBuilder) WeekGrid(ref Date) []GridCell {
	start := b.WeekStartOf(ref)

	cells := make([]GridCell, DaysPerWeek)
	for i := range cells {
		cells[i] = GridCell{
			Date:              start.AddDays(i),
			InReferencePeriod: true,
		}
	}
	return cells
}

// DayGrid is the single-cell skeleton of the day view.
func (b GridBuilder) DayGrid(ref Date) []GridCell {
	return []GridCell{{Date: ref, InReferencePeriod: true}}
}
