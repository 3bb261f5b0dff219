package calendar

import (
	"fmt"
	"strings"
	"time"

	"calview/internal/model"
)

// ViewMode is the closed set of calendar views.
type ViewMode string

const (
	ViewMonth  ViewMode = "month"
	ViewWeek   ViewMode = "week"
	ViewDay    ViewMode = "day"
	ViewAgenda ViewMode = "agenda"
)

// ParseViewMode accepts the lower-case mode names; "" means month.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ViewMonth, nil
	case ViewMonth, ViewWeek, ViewDay, ViewAgenda:
		return m, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// Selection is the user-driven state the projections are computed from.
// Reference and Selected are independent: switching modes never clears the
// selection and navigation only ever moves Reference.
type Selection struct {
	Reference  Date       `json:"reference"`
	Selected   *Date      `json:"selected,omitempty"`
	Mode       ViewMode   `json:"mode"`
	Visibility Visibility `json:"visibility"`
}

// NewSelection starts on today's month with every given source visible and
// nothing selected.
func NewSelection(now time.Time, sources ...model.SourceID) *Selection {
	return &Selection{
		Reference:  DayKey(now),
		Mode:       ViewMonth,
		Visibility: NewVisibility(sources...),
	}
}

func (s *Selection) SetViewMode(m ViewMode) {
	s.Mode = m
}

// Navigate moves the reference by direction periods of the current mode:
// whole months (re-anchored to day 1), weeks, or days. Agenda is ungridded
// and ignores navigation.
func (s *Selection) Navigate(direction int) {
	switch s.Mode {
	case ViewMonth:
		s.Reference = s.Reference.AddMonths(direction)
	case ViewWeek:
		s.Reference = s.Reference.AddDays(direction * DaysPerWeek)
	case ViewDay:
		s.Reference = s.Reference.AddDays(direction)
	}
}

// SelectDate highlights d. In month mode the reference also moves into d's
// month.
func (s *Selection) SelectDate(d Date) {
	sel := d
	s.Selected = &sel
	if s.Mode == ViewMonth {
		s.Reference = d
	}
}

func (s *Selection) ClearSelection() {
	s.Selected = nil
}

// GoToToday points both reference and selection at now's day, whatever the
// mode.
func (s *Selection) GoToToday(now time.Time) {
	today := DayKey(now)
	s.Reference = today
	s.Selected = &today
}

func (s *Selection) IsSelected(d Date) bool {
	return s.Selected != nil && *s.Selected == d
}

func (s *Selection) SetSourceVisible(id model.SourceID, visible bool) {
	if s.Visibility == nil {
		s.Visibility = make(Visibility)
	}
	s.Visibility[id] = visible
}

// ToggleSource flips id's visibility. A source not yet in the map counts as
// visible, so its first toggle hides it.
func (s *Selection) ToggleSource(id model.SourceID) {
	s.SetSourceVisible(id, !s.Visibility.IsVisible(&model.CalendarEvent{Source: id}))
}
