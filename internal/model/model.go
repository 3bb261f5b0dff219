package model

import "time"

// SourceID identifies the calendar an event originates from. The set of
// recognised sources is configured; the well-known ones are listed below.
type SourceID string

const (
	SourcePlatform  SourceID = "platform"
	SourceGoogle    SourceID = "google"
	SourceMicrosoft SourceID = "microsoft"
)

// Kind is informational only and never affects bucketing.
type Kind string

const (
	KindBooking Kind = "booking"
	KindMeeting Kind = "meeting"
	KindEvent   Kind = "event"
	KindBusy    Kind = "busy"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBooking, KindMeeting, KindEvent, KindBusy:
		return true
	default:
		return false
	}
}

// CalendarEvent is a single concrete event as delivered by a source.
//
// Start / End are wall-clock times in the display timezone. All-day events
// span 00:00 to 23:59 of their last day.
type CalendarEvent struct {
	ID     string   `json:"id" yaml:"id"`
	Title  string   `json:"title" yaml:"title"`
	Source SourceID `json:"source" yaml:"source"`
	Kind   Kind     `json:"kind" yaml:"kind"`
	Color  string   `json:"color,omitempty" yaml:"color,omitempty"`

	Start  time.Time `json:"start" yaml:"start"`
	End    time.Time `json:"end" yaml:"end"`
	AllDay bool      `json:"all_day,omitempty" yaml:"all_day,omitempty"`

	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty" yaml:"attendees,omitempty"`
	MeetingLink string   `json:"meeting_link,omitempty" yaml:"meeting_link,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Duration returns End - Start.
func (e *CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}
