package source

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"calview/internal/model"
)

const (
	mockWindowBefore = 7  // days before the anchor
	mockWindowDays   = 35 // total days covered
)

var (
	mockTitles = map[model.Kind][]string{
		model.KindBooking: {"Mentoring session", "Portfolio review", "Mock interview", "Career coaching"},
		model.KindMeeting: {"Team sync", "1:1", "Design review", "Sprint planning", "Client call"},
		model.KindEvent:   {"Tech talk", "Hiring fair", "Webinar", "Workshop"},
		model.KindBusy:    {"Busy"},
	}
	mockPeople    = []string{"kim@example.com", "lee@example.com", "park@example.com", "choi@example.com", "jung@example.com"}
	mockDurations = []time.Duration{30 * time.Minute, 45 * time.Minute, time.Hour, 90 * time.Minute, 2 * time.Hour}
)

// MockProvider generates a deterministic set of events around the anchor
// day. The same seed, count and anchor day always yield the same events,
// ids included.
type MockProvider struct {
	Source   model.SourceID
	Seed     int64
	Count    int
	Color    string
	Location *time.Location
	// Now anchors the generated window. Defaults to time.Now.
	Now func() time.Time
}

func (p *MockProvider) ID() model.SourceID {
	return p.Source
}

func (p *MockProvider) Events(ctx context.Context) ([]model.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	anchor := now().In(loc)
	first := time.Date(anchor.Year(), anchor.Month(), anchor.Day()-mockWindowBefore, 0, 0, 0, 0, loc)

	rng := rand.New(rand.NewSource(p.Seed))
	kinds := p.kinds()

	out := make([]model.CalendarEvent, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		day := first.AddDate(0, 0, rng.Intn(mockWindowDays))
		kind := kinds[rng.Intn(len(kinds))]
		titles := mockTitles[kind]

		ev := model.CalendarEvent{
			ID:     stableID(string(p.Source), strconv.FormatInt(p.Seed, 10), day.Format("2006-01-02"), strconv.Itoa(i)),
			Title:  titles[rng.Intn(len(titles))],
			Source: p.Source,
			Kind:   kind,
			Color:  p.Color,
		}

		// Roughly one in ten is an all-day event.
		if kind == model.KindEvent && rng.Intn(10) == 0 {
			ev.AllDay = true
			ev.Start = day
			ev.End = time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 0, 0, loc)
		} else {
			hour := 8 + rng.Intn(11)
			minute := 15 * rng.Intn(4)
			ev.Start = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
			ev.End = ev.Start.Add(mockDurations[rng.Intn(len(mockDurations))])
		}

		switch kind {
		case model.KindMeeting, model.KindBooking:
			n := 1 + rng.Intn(3)
			start := rng.Intn(len(mockPeople))
			for j := 0; j < n; j++ {
				ev.Attendees = append(ev.Attendees, mockPeople[(start+j)%len(mockPeople)])
			}
			ev.MeetingLink = p.meetingLink(rng)
		case model.KindEvent:
			ev.Location = fmt.Sprintf("Room %d", 100+rng.Intn(20))
		}

		out = append(out, ev)
	}
	return out, nil
}

// kinds weights the generated mix by source: the platform hands out
// bookings, external calendars mostly meetings and busy blocks.
func (p *MockProvider) kinds() []model.Kind {
	switch p.Source {
	case model.SourcePlatform:
		return []model.Kind{model.KindBooking, model.KindBooking, model.KindMeeting, model.KindEvent}
	default:
		return []model.Kind{model.KindMeeting, model.KindMeeting, model.KindEvent, model.KindBusy}
	}
}

func (p *MockProvider) meetingLink(rng *rand.Rand) string {
	code := strconv.FormatInt(rng.Int63n(1<<40), 36)
	switch p.Source {
	case model.SourceGoogle:
		return "https://meet.google.com/" + code
	case model.SourceMicrosoft:
		return "https://teams.microsoft.com/l/meetup-join/" + code
	default:
		return "https://zoom.us/j/" + code
	}
}
