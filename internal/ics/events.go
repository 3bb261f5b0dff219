package ics

import (
	"regexp"
	"time"

	appLog "calview/internal/log"
	"calview/internal/model"
)

var meetingLinkPattern = regexp.MustCompile(`https://[^\s<>"]*(zoom\.us|meet\.google\.com|teams\.microsoft\.com|teams\.live\.com)[^\s<>"]*`)

// ConvertConfig controls how parsed VEVENTs become calendar events.
type ConvertConfig struct {
	Source model.SourceID
	Color  string
	// DisplayLocation is the zone Start/End are expressed in. Defaults to
	// time.Local.
	DisplayLocation *time.Location
}

// ToEvents converts parsed VEVENTs into display-ready calendar events.
//
// Recurrence rules are not expanded: a recurring series contributes its
// first instance only, and RECURRENCE-ID overrides are kept as standalone
// instances. An override of the first instance replaces it. CANCELLED
// events are dropped.
func ToEvents(events []ParsedEvent, cfg ConvertConfig) []model.CalendarEvent {
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	order := make([]string, 0)

	for _, ev := range events {
		if _, seen := baseByUID[ev.UID]; !seen {
			if _, seen := overridesByUID[ev.UID]; !seen {
				order = append(order, ev.UID)
			}
		}
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	out := make([]model.CalendarEvent, 0, len(events))
	for _, uid := range order {
		masterLoc := cfg.DisplayLocation
		if base := baseByUID[uid]; len(base) > 0 {
			masterLoc = base[0].Start.Location()
		}
		overrides := anchorRecurrences(overridesByUID[uid], masterLoc)
		used := make(map[int]bool)

		for _, ev := range latest(baseByUID[uid]) {
			if ev.RawRRule != "" {
				appLog.Debug("ics recurrence not expanded", "id", ev.Source.ID, "uid", uid, "rrule", ev.RawRRule)
			}
			if i, ok := findOverrideForStart(overrides, ev.Start); ok {
				used[i] = true
				ev = overrides[i]
			}
			if ce, ok := makeEvent(ev, cfg); ok {
				out = append(out, ce)
			}
		}

		for i, ov := range overrides {
			if used[i] {
				continue
			}
			if ce, ok := makeEvent(ov, cfg); ok {
				out = append(out, ce)
			}
		}
	}
	return out
}

// latest keeps the highest SEQUENCE per UID; feeds occasionally carry stale
// copies of an edited event.
func latest(events []ParsedEvent) []ParsedEvent {
	if len(events) <= 1 {
		return events
	}
	best := events[0]
	for _, ev := range events[1:] {
		if ev.Seq > best.Seq {
			best = ev
		}
	}
	return []ParsedEvent{best}
}

// anchorRecurrences places floating RECURRENCE-ID wall clocks in loc so they
// compare against the master's DTSTART.
func anchorRecurrences(overrides []ParsedEvent, loc *time.Location) []ParsedEvent {
	for i := range overrides {
		ov := &overrides[i]
		if !ov.RecurrenceFloating || ov.Recurrence == nil {
			continue
		}
		r := *ov.Recurrence
		anchored := time.Date(r.Year(), r.Month(), r.Day(), r.Hour(), r.Minute(), r.Second(), 0, loc)
		ov.Recurrence = &anchored
		ov.RecurrenceFloating = false
	}
	return overrides
}

func findOverrideForStart(overrides []ParsedEvent, start time.Time) (int, bool) {
	for i, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

func makeEvent(ev ParsedEvent, cfg ConvertConfig) (model.CalendarEvent, bool) {
	if ev.Status == "CANCELLED" {
		return model.CalendarEvent{}, false
	}

	start, end := displayRange(ev, cfg.DisplayLocation)

	id := string(cfg.Source) + ":" + ev.UID
	if ev.Recurrence != nil {
		id += "@" + ev.Recurrence.UTC().Format("20060102T150405Z")
	}

	link := ev.URL
	if link == "" {
		link = meetingLinkPattern.FindString(ev.Description + " " + ev.Location)
	}

	return model.CalendarEvent{
		ID:          id,
		Title:       ev.Summary,
		Source:      cfg.Source,
		Kind:        kindOf(ev, link),
		Color:       cfg.Color,
		Start:       start,
		End:         end,
		AllDay:      ev.AllDay,
		Location:    ev.Location,
		Attendees:   ev.Attendees,
		MeetingLink: link,
		Description: ev.Description,
	}, true
}

// displayRange expresses the event in loc. All-day events run from 00:00 of
// their first day to 23:59 of their last; DTEND of a DATE event is
// exclusive.
func displayRange(ev ParsedEvent, loc *time.Location) (time.Time, time.Time) {
	if ev.AllDay {
		first := time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, loc)
		last := first
		if ev.HasEnd {
			excl := time.Date(ev.End.Year(), ev.End.Month(), ev.End.Day(), 0, 0, 0, 0, loc)
			if d := excl.AddDate(0, 0, -1); d.After(first) {
				last = d
			}
		}
		return first, time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 0, 0, loc)
	}

	start := inZone(ev.Start, ev.Floating, loc)
	end := start
	if ev.HasEnd {
		end = inZone(ev.End, ev.Floating, loc)
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

func inZone(t time.Time, floating bool, loc *time.Location) time.Time {
	if floating {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return t.In(loc)
}

func kindOf(ev ParsedEvent, link string) model.Kind {
	switch {
	case ev.Class == "PRIVATE" || ev.Class == "CONFIDENTIAL":
		return model.KindBusy
	case ev.Summary == "" && !ev.Transparent:
		return model.KindBusy
	case link != "" || len(ev.Attendees) > 0:
		return model.KindMeeting
	default:
		return model.KindEvent
	}
}
