package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthGrid(t *testing.T) {
	t.Parallel()

	t.Run("always 42 consecutive days", func(t *testing.T) {
		t.Parallel()

		b := GridBuilder{}
		for d := NewDate(2023, 1, 1); d.Before(NewDate(2027, 1, 1)); d = d.AddDays(13) {
			cells := b.MonthGrid(d)
			require.Len(t, cells, MonthGridCells, d.String())

			for i := 1; i < len(cells); i++ {
				assert.Equal(t, cells[i-1].Date.AddDays(1), cells[i].Date, d.String())
			}
			assert.Equal(t, time.Sunday, cells[0].Date.Weekday(), d.String())
		}
	})

	t.Run("reference period boundaries for March 2025", func(t *testing.T) {
		t.Parallel()

		cells := GridBuilder{}.MonthGrid(NewDate(2025, 3, 17))

		idx := -1
		for i, c := range cells {
			if c.Date == NewDate(2025, 3, 1) {
				idx = i
			}
		}
		require.Equal(t, 6, idx, "March 1 2025 is a Saturday")
		assert.True(t, cells[idx].InReferencePeriod)
		assert.False(t, cells[idx-1].InReferencePeriod)
		assert.Equal(t, NewDate(2025, 2, 28), cells[idx-1].Date)
		assert.Equal(t, NewDate(2025, 2, 23), cells[0].Date)

		inPeriod := 0
		for _, c := range cells {
			if c.InReferencePeriod {
				inPeriod++
				assert.Equal(t, time.March, c.Date.Month)
			}
		}
		assert.Equal(t, 31, inPeriod)
		assert.Equal(t, NewDate(2025, 4, 5), cells[41].Date)
	})

	t.Run("month starting on week start has no leading days", func(t *testing.T) {
		t.Parallel()

		cells := GridBuilder{}.MonthGrid(NewDate(2025, 6, 10))
		assert.Equal(t, NewDate(2025, 6, 1), cells[0].Date)
		assert.True(t, cells[0].InReferencePeriod)
	})

	t.Run("four-row february still yields 42 cells into march", func(t *testing.T) {
		t.Parallel()

		cells := GridBuilder{}.MonthGrid(NewDate(2015, 2, 1))
		assert.Equal(t, NewDate(2015, 2, 1), cells[0].Date)
		assert.Equal(t, NewDate(2015, 3, 14), cells[41].Date)
		assert.False(t, cells[41].InReferencePeriod)
	})

	t.Run("monday week start", func(t *testing.T) {
		t.Parallel()

		cells := GridBuilder{WeekStart: time.Monday}.MonthGrid(NewDate(2025, 3, 1))
		assert.Equal(t, NewDate(2025, 2, 24), cells[0].Date)
		assert.Equal(t, time.Monday, cells[0].Date.Weekday())
	})

	t.Run("never highlights", func(t *testing.T) {
		t.Parallel()

		for _, c := range (GridBuilder{}).MonthGrid(NewDate(2025, 3, 1)) {
			assert.False(t, c.IsToday)
			assert.False(t, c.IsSelected)
		}
	})
}

func TestWeekGrid(t *testing.T) {
	t.Parallel()

	t.Run("seven days from sunday", func(t *testing.T) {
		t.Parallel()

		b := GridBuilder{}
		for d := NewDate(2024, 12, 1); d.Before(NewDate(2025, 2, 1)); d = d.AddDays(1) {
			cells := b.WeekGrid(d)
			require.Len(t, cells, DaysPerWeek)
			assert.Equal(t, time.Sunday, cells[0].Date.Weekday(), d.String())
			for i := 1; i < len(cells); i++ {
				assert.Equal(t, cells[i-1].Date.AddDays(1), cells[i].Date)
			}
			assert.False(t, d.Before(cells[0].Date))
			assert.True(t, d.Before(cells[0].Date.AddDays(DaysPerWeek)))
		}
	})

	t.Run("reference on sunday starts the week", func(t *testing.T) {
		t.Parallel()

		cells := GridBuilder{}.WeekGrid(NewDate(2025, 3, 2))
		assert.Equal(t, NewDate(2025, 3, 2), cells[0].Date)
	})

	t.Run("reference on saturday", func(t *testing.T) {
		t.Parallel()

		cells := GridBuilder{}.WeekGrid(NewDate(2025, 3, 1))
		assert.Equal(t, NewDate(2025, 2, 23), cells[0].Date)
		assert.Equal(t, NewDate(2025, 3, 1), cells[6].Date)
	})
}

func TestDayGrid(t *testing.T) {
	t.Parallel()

	cells := GridBuilder{}.DayGrid(NewDate(2025, 3, 5))
	require.Len(t, cells, 1)
	assert.Equal(t, NewDate(2025, 3, 5), cells[0].Date)
}
