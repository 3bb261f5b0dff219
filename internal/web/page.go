package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"calview/internal/calendar"
	appLog "calview/internal/log"
	"calview/internal/model"
)

//go:embed templates/calendar.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"clock": func(ev *model.CalendarEvent) string {
		if ev.AllDay {
			return "all day"
		}
		return ev.Start.Format("15:04")
	},
}).ParseFS(templateFS, "templates/calendar.html"))

type sourceToggle struct {
	ID      model.SourceID
	Label   string
	Color   string
	Visible bool
	URL     string
}

type navLink struct {
	Label  string
	URL    string
	Active bool
}

type pageData struct {
	Mode      calendar.ViewMode
	Reference calendar.Date
	Title     string
	Location  string
	View      calendar.View
	Weekdays  []string
	Colors    map[model.SourceID]string
	Sources   []sourceToggle
	Modes     []navLink
	Prev      string
	Next      string
	Today     string
}

// handleCalendarPage renders the requested view as static HTML. The root
// element carries data-ready="true" once rendered so a headless browser can
// tell when to take the screenshot.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	store, _, _ := s.backend.Snapshot()
	now := s.now().In(s.loc)

	sel, err := selectionFromQuery(r.URL.Query(), now, knownSources(s.sourceIDs(), store))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := s.pageData(sel, calendar.NewProjector(store, s.opts).Project(sel, now), store)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		appLog.Error("calendar page render failed", err)
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) pageData(sel *calendar.Selection, view calendar.View, store *calendar.Store) pageData {
	data := pageData{
		Mode:      sel.Mode,
		Reference: sel.Reference,
		Title:     pageTitle(sel),
		Location:  s.loc.String(),
		View:      view,
		Colors:    make(map[model.SourceID]string),
		Prev:      withAction(sel, actionPrev),
		Next:      withAction(sel, actionNext),
		Today:     withAction(sel, actionToday),
	}

	start := calendar.GridBuilder{WeekStart: s.opts.WeekStart}.WeekStartOf(sel.Reference)
	for i := 0; i < calendar.DaysPerWeek; i++ {
		data.Weekdays = append(data.Weekdays, start.AddDays(i).Weekday().String()[:3])
	}

	for _, m := range []calendar.ViewMode{calendar.ViewMonth, calendar.ViewWeek, calendar.ViewDay, calendar.ViewAgenda} {
		next := *sel
		next.SetViewMode(m)
		data.Modes = append(data.Modes, navLink{
			Label:  string(m),
			URL:    pageURL(selectionQuery(&next)),
			Active: m == sel.Mode,
		})
	}

	for _, id := range knownSources(s.sourceIDs(), store) {
		label, color := string(id), ""
		if src, ok := s.cfg.Source(string(id)); ok {
			label, color = src.Label, src.Color
		}
		data.Colors[id] = color

		next := *sel
		next.Visibility = sel.Visibility.Clone()
		next.ToggleSource(id)
		data.Sources = append(data.Sources, sourceToggle{
			ID:      id,
			Label:   label,
			Color:   color,
			Visible: sel.Visibility.IsVisible(&model.CalendarEvent{Source: id}),
			URL:     pageURL(selectionQuery(&next)),
		})
	}
	return data
}

func pageTitle(sel *calendar.Selection) string {
	ref := sel.Reference.In(time.UTC)
	switch sel.Mode {
	case calendar.ViewWeek:
		return "Week of " + ref.Format("Jan 2, 2006")
	case calendar.ViewDay:
		return ref.Format("Monday, Jan 2, 2006")
	case calendar.ViewAgenda:
		return "Upcoming"
	default:
		return ref.Format("January 2006")
	}
}

func withAction(sel *calendar.Selection, action string) string {
	q := selectionQuery(sel)
	q.Set("action", action)
	return pageURL(q)
}

func pageURL(q url.Values) string {
	return "/calendar?" + q.Encode()
}
