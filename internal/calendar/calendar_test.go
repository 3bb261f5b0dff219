package calendar

import (
	"time"

	"calview/internal/model"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func event(id string, start, end time.Time, src model.SourceID) model.CalendarEvent {
	return model.CalendarEvent{
		ID:     id,
		Title:  "event " + id,
		Source: src,
		Kind:   model.KindMeeting,
		Start:  start,
		End:    end,
	}
}

func mustStore(records ...model.CalendarEvent) *Store {
	s, errs := NewStore(records)
	if len(errs) > 0 {
		panic(errs[0])
	}
	return s
}

func ids(events []*model.CalendarEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}
