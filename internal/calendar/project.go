package calendar

import (
	"sort"
	"time"

	"calview/internal/model"
)

const (
	DefaultDisplayCapPerCell = 3
	DefaultAgendaMax         = 15
)

// Options are the presentation constants the projections honour.
type Options struct {
	// DisplayCapPerCell is how many events a month cell shows before
	// collapsing the rest into "+N more". <= 0 shows everything.
	DisplayCapPerCell int
	// AgendaMax bounds the agenda list. <= 0 means unbounded.
	AgendaMax int
	WeekStart time.Weekday
}

// DefaultOptions mirrors the values the scheduling screen ships with.
func DefaultOptions() Options {
	return Options{
		DisplayCapPerCell: DefaultDisplayCapPerCell,
		AgendaMax:         DefaultAgendaMax,
		WeekStart:         time.Sunday,
	}
}

// MonthCell is a month grid day with every visible event starting on it.
type MonthCell struct {
	GridCell
	Events []*model.CalendarEvent `json:"events"`
	Cap    int                    `json:"cap"`
}

// Shown returns the first Cap events.
func (c MonthCell) Shown() []*model.CalendarEvent {
	if c.Cap <= 0 || len(c.Events) <= c.Cap {
		return c.Events
	}
	return c.Events[:c.Cap]
}

// Overflow is the K of "+K more".
func (c MonthCell) Overflow() int {
	return len(c.Events) - len(c.Shown())
}

type MonthView struct {
	Reference Date        `json:"reference"`
	Cells     []MonthCell `json:"cells"`
}

// Weeks splits the cells into rows of seven.
func (v MonthView) Weeks() [][]MonthCell {
	rows := make([][]MonthCell, 0, len(v.Cells)/DaysPerWeek)
	for i := 0; i+DaysPerWeek <= len(v.Cells); i += DaysPerWeek {
		rows = append(rows, v.Cells[i:i+DaysPerWeek])
	}
	return rows
}

type HourSlot struct {
	Hour   int                    `json:"hour"`
	Events []*model.CalendarEvent `json:"events"`
}

// DayColumn is one day of the week or day view split into 24 hour rows.
type DayColumn struct {
	GridCell
	Hours []HourSlot `json:"hours"`
}

type WeekView struct {
	Reference Date        `json:"reference"`
	Days      []DayColumn `json:"days"`
}

type DayView struct {
	Reference Date      `json:"reference"`
	Day       DayColumn `json:"day"`
}

type AgendaView struct {
	Now    time.Time              `json:"now"`
	Max    int                    `json:"max"`
	Events []*model.CalendarEvent `json:"events"`
}

// View is the projection for a single mode; exactly one pointer is set.
type View struct {
	Mode   ViewMode    `json:"mode"`
	Month  *MonthView  `json:"month,omitempty"`
	Week   *WeekView   `json:"week,omitempty"`
	Day    *DayView    `json:"day,omitempty"`
	Agenda *AgendaView `json:"agenda,omitempty"`
}

// Projector turns a store and a selection into renderable views. It keeps no
// state between calls, so a new store only needs a new Projector.
type Projector struct {
	store *Store
	opts  Options
	grid  GridBuilder
}

func NewProjector(store *Store, opts Options) *Projector {
	if store == nil {
		store = EmptyStore()
	}
	return &Projector{
		store: store,
		opts:  opts,
		grid:  GridBuilder{WeekStart: opts.WeekStart},
	}
}

func (p *Projector) Options() Options {
	return p.opts
}

// Project dispatches on sel.Mode.
func (p *Projector) Project(sel *Selection, now time.Time) View {
	switch sel.Mode {
	case ViewWeek:
		v := p.Week(sel, now)
		return View{Mode: ViewWeek, Week: &v}
	case ViewDay:
		v := p.Day(sel, now)
		return View{Mode: ViewDay, Day: &v}
	case ViewAgenda:
		v := p.Agenda(sel, now)
		return View{Mode: ViewAgenda, Agenda: &v}
	default:
		v := p.Month(sel, now)
		return View{Mode: ViewMonth, Month: &v}
	}
}

// Month fills the 42-cell grid of sel.Reference's month.
func (p *Projector) Month(sel *Selection, now time.Time) MonthView {
	byDay := p.bucketByDay(sel.Visibility)
	skeleton := p.grid.MonthGrid(sel.Reference)

	cells := make([]MonthCell, len(skeleton))
	for i, c := range skeleton {
		cells[i] = MonthCell{
			GridCell: highlight(c, sel, now),
			Events:   nonNil(byDay[c.Date]),
			Cap:      p.opts.DisplayCapPerCell,
		}
	}
	return MonthView{Reference: sel.Reference, Cells: cells}
}

// Week fills the 7 x 24 grid of the week containing sel.Reference.
func (p *Projector) Week(sel *Selection, now time.Time) WeekView {
	byDay := p.bucketByDay(sel.Visibility)
	skeleton := p.grid.WeekGrid(sel.Reference)

	days := make([]DayColumn, len(skeleton))
	for i, c := range skeleton {
		days[i] = dayColumn(highlight(c, sel, now), byDay[c.Date])
	}
	return WeekView{Reference: sel.Reference, Days: days}
}

// Day fills the 24 hour rows of sel.Reference.
func (p *Projector) Day(sel *Selection, now time.Time) DayView {
	byDay := p.bucketByDay(sel.Visibility)
	c := p.grid.DayGrid(sel.Reference)[0]

	return DayView{
		Reference: sel.Reference,
		Day:       dayColumn(highlight(c, sel, now), byDay[c.Date]),
	}
}

// Agenda lists the soonest visible events starting at or after now.
func (p *Projector) Agenda(sel *Selection, now time.Time) AgendaView {
	upcoming := make([]*model.CalendarEvent, 0)
	for _, ev := range p.store.events {
		if ev.Start.Before(now) || !sel.Visibility.IsVisible(ev) {
			continue
		}
		upcoming = append(upcoming, ev)
	}
	sortByStart(upcoming)

	if p.opts.AgendaMax > 0 && len(upcoming) > p.opts.AgendaMax {
		upcoming = upcoming[:p.opts.AgendaMax]
	}
	return AgendaView{Now: now, Max: p.opts.AgendaMax, Events: upcoming}
}

// bucketByDay groups visible events by the day they start on, each bucket
// sorted by start.
func (p *Projector) bucketByDay(vis Visibility) map[Date][]*model.CalendarEvent {
	out := make(map[Date][]*model.CalendarEvent)
	for _, ev := range p.store.events {
		if !vis.IsVisible(ev) {
			continue
		}
		key := DayKey(ev.Start)
		out[key] = append(out[key], ev)
	}
	for _, bucket := range out {
		sortByStart(bucket)
	}
	return out
}

// dayColumn places each event in the row of its start hour only; an event
// running 10:00-13:00 shows up at 10 and nowhere else.
func dayColumn(c GridCell, events []*model.CalendarEvent) DayColumn {
	hours := make([]HourSlot, HoursPerDay)
	for h := range hours {
		hours[h] = HourSlot{Hour: h, Events: []*model.CalendarEvent{}}
	}
	for _, ev := range events {
		h := HourOfDay(ev.Start)
		hours[h].Events = append(hours[h].Events, ev)
	}
	return DayColumn{GridCell: c, Hours: hours}
}

func highlight(c GridCell, sel *Selection, now time.Time) GridCell {
	c.IsToday = c.Date == DayKey(now)
	c.IsSelected = sel.IsSelected(c.Date)
	return c
}

func sortByStart(events []*model.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

func nonNil(events []*model.CalendarEvent) []*model.CalendarEvent {
	if events == nil {
		return []*model.CalendarEvent{}
	}
	return events
}
