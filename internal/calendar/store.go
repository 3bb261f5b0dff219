package calendar

import (
	"errors"
	"fmt"
	"sort"

	"calview/internal/model"
)

// ErrInvalidEvent is wrapped by every record rejected at ingestion.
var ErrInvalidEvent = errors.New("invalid calendar event")

// RejectedEvent describes one record NewStore refused.
type RejectedEvent struct {
	ID     string
	Source model.SourceID
	Reason string
}

func (r *RejectedEvent) Error() string {
	return fmt.Sprintf("%v: id=%q source=%q: %s", ErrInvalidEvent, r.ID, r.Source, r.Reason)
}

func (r *RejectedEvent) Unwrap() error {
	return ErrInvalidEvent
}

// Store is the canonical, read-only collection of events from all sources.
// Projections only ever hold pointers into it.
type Store struct {
	events []*model.CalendarEvent
	byID   map[string]*model.CalendarEvent
}

// NewStore validates records and keeps the well-formed ones in input order.
// Every rejected record yields one *RejectedEvent in the returned slice.
func NewStore(records []model.CalendarEvent) (*Store, []error) {
	s := &Store{
		events: make([]*model.CalendarEvent, 0, len(records)),
		byID:   make(map[string]*model.CalendarEvent, len(records)),
	}
	var errs []error

	for i := range records {
		ev := records[i]
		if ev.Kind == "" {
			ev.Kind = model.KindEvent
		}

		if reason := validate(&ev); reason != "" {
			errs = append(errs, &RejectedEvent{ID: ev.ID, Source: ev.Source, Reason: reason})
			continue
		}
		if _, dup := s.byID[ev.ID]; dup {
			errs = append(errs, &RejectedEvent{ID: ev.ID, Source: ev.Source, Reason: "duplicate id"})
			continue
		}

		p := &ev
		s.events = append(s.events, p)
		s.byID[ev.ID] = p
	}

	return s, errs
}

func validate(ev *model.CalendarEvent) string {
	switch {
	case ev.ID == "":
		return "missing id"
	case ev.Start.IsZero():
		return "missing start"
	case ev.End.Before(ev.Start):
		return "end before start"
	case !ev.Kind.Valid():
		return fmt.Sprintf("unknown kind %q", ev.Kind)
	default:
		return ""
	}
}

// EmptyStore returns a store without events.
func EmptyStore() *Store {
	s, _ := NewStore(nil)
	return s
}

func (s *Store) Len() int {
	return len(s.events)
}

// Events returns the events in ingestion order. The slice is fresh; the
// pointed-to events must not be modified.
func (s *Store) Events() []*model.CalendarEvent {
	out := make([]*model.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Get(id string) (*model.CalendarEvent, bool) {
	ev, ok := s.byID[id]
	return ev, ok
}

// Sources lists the distinct sources present, sorted.
func (s *Store) Sources() []model.SourceID {
	seen := make(map[model.SourceID]struct{})
	var out []model.SourceID
	for _, ev := range s.events {
		if _, ok := seen[ev.Source]; ok {
			continue
		}
		seen[ev.Source] = struct{}{}
		out = append(out, ev.Source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CountBySource returns how many events each source contributed.
func (s *Store) CountBySource() map[model.SourceID]int {
	out := make(map[model.SourceID]int)
	for _, ev := range s.events {
		out[ev.Source]++
	}
	return out
}
