package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calview/internal/log"
)

// ParsedEvent is a VEVENT with its properties pulled out but its times not
// yet normalised to the display zone. ToEvents turns it into a
// model.CalendarEvent.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	URL         string
	Status      string
	Class       string
	Transparent bool
	Attendees   []string

	Start  time.Time
	End    time.Time
	AllDay bool
	// Floating is set for DATE-TIME values with neither TZID nor a UTC
	// suffix; their wall clock belongs to whatever zone displays them.
	Floating bool
	HasEnd   bool

	RawRRule   string
	Recurrence *time.Time // RECURRENCE-ID (if present)
	// RecurrenceFloating marks a RECURRENCE-ID without TZID or UTC suffix.
	// Its wall clock is read in the master's zone, see ToEvents.
	RecurrenceFloating bool
	IsOverride         bool
}

// ParseICS parses a single ICS payload. VEVENTs that cannot be read are
// logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("parse ics %s: %w", src.ID, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "uid", comp.Id())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	out.UID = ve.Id()
	if out.UID == "" {
		return out, errors.New("missing UID")
	}

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = textProp(ve, ical.ComponentPropertySummary)
	out.Description = textProp(ve, ical.ComponentPropertyDescription)
	out.Location = textProp(ve, ical.ComponentPropertyLocation)
	out.URL = textProp(ve, ical.ComponentPropertyUrl)
	out.Status = strings.ToUpper(textProp(ve, ical.ComponentPropertyStatus))
	out.Class = strings.ToUpper(textProp(ve, ical.ComponentPropertyClass))
	out.Transparent = strings.EqualFold(textProp(ve, ical.ComponentPropertyTransp), string(ical.TransparencyTransparent))

	for _, a := range ve.Attendees() {
		if email := a.Email(); email != "" {
			out.Attendees = append(out.Attendees, email)
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
		out.Floating = isFloating(dtStart)
	}
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if out.AllDay {
			out.End, err = ve.GetAllDayEndAt()
		} else {
			out.End, err = ve.GetEndAt()
		}
		if err != nil {
			return out, fmt.Errorf("DTEND: %w", err)
		}
		out.HasEnd = true
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	if ridProp := ve.GetProperty(ical.ComponentPropertyRecurrenceId); ridProp != nil {
		if t, floating, err := parseRecurrenceID(ridProp); err == nil {
			out.Recurrence = &t
			out.RecurrenceFloating = floating
			out.IsOverride = true
		} else {
			appLog.Debug("ics: unreadable RECURRENCE-ID", "id", src.ID, "uid", out.UID, "value", ridProp.Value)
		}
	}

	return out, nil
}

func textProp(ve *ical.VEvent, p ical.ComponentProperty) string {
	prop := ve.GetProperty(p)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(ical.FromText(prop.Value))
}

// isDateValue reports VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(prop *ical.IANAProperty) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

func isFloating(prop *ical.IANAProperty) bool {
	if _, ok := prop.ICalParameters["TZID"]; ok {
		return false
	}
	return !strings.HasSuffix(prop.Value, "Z")
}

// parseRecurrenceID reads a RECURRENCE-ID honouring its TZID and VALUE=DATE
// parameters. Date values, floating values and unknown zones come back as
// UTC wall clocks with floating set.
func parseRecurrenceID(prop *ical.IANAProperty) (time.Time, bool, error) {
	v := strings.TrimSpace(prop.Value)
	if v == "" {
		return time.Time{}, false, errors.New("empty time value")
	}

	if isDateValue(prop) {
		t, err := time.ParseInLocation("20060102", v, time.UTC)
		return t, true, err
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	}
	if tzids := prop.ICalParameters["TZID"]; len(tzids) > 0 && tzids[0] != "" {
		if loc, err := time.LoadLocation(strings.Trim(tzids[0], `"`)); err == nil {
			t, err := time.ParseInLocation("20060102T150405", v, loc)
			return t, false, err
		}
	}
	t, err := time.ParseInLocation("20060102T150405", v, time.UTC)
	return t, true, err
}
