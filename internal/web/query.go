package web

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"calview/internal/calendar"
	"calview/internal/model"
)

// Navigation actions accepted by /api/view and /calendar.
const (
	actionPrev  = "prev"
	actionNext  = "next"
	actionToday = "today"
)

// selectionFromQuery rebuilds the selection a client is looking at and
// applies the requested action to it.
//
//	mode=month|week|day|agenda  ref=YYYY-MM-DD  selected=YYYY-MM-DD
//	hidden=google,microsoft     action=prev|next|today  select=YYYY-MM-DD
func selectionFromQuery(q url.Values, now time.Time, sources []model.SourceID) (*calendar.Selection, error) {
	sel := calendar.NewSelection(now, sources...)

	mode, err := calendar.ParseViewMode(q.Get("mode"))
	if err != nil {
		return nil, err
	}
	sel.SetViewMode(mode)

	if v := q.Get("ref"); v != "" {
		ref, err := calendar.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("ref: %w", err)
		}
		sel.Reference = ref
	}
	if v := q.Get("selected"); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("selected: %w", err)
		}
		sel.Selected = &d
	}

	for _, id := range splitList(q.Get("hidden")) {
		sel.SetSourceVisible(model.SourceID(id), false)
	}

	switch q.Get("action") {
	case "":
	case actionPrev:
		sel.Navigate(-1)
	case actionNext:
		sel.Navigate(1)
	case actionToday:
		sel.GoToToday(now)
	default:
		return nil, fmt.Errorf("unknown action %q", q.Get("action"))
	}

	if v := q.Get("select"); v != "" {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		sel.SelectDate(d)
	}
	return sel, nil
}

// selectionQuery is the inverse of selectionFromQuery: the query that
// reproduces sel with no pending action.
func selectionQuery(sel *calendar.Selection) url.Values {
	q := url.Values{}
	q.Set("mode", string(sel.Mode))
	q.Set("ref", sel.Reference.String())
	if sel.Selected != nil {
		q.Set("selected", sel.Selected.String())
	}
	if hidden := sel.Visibility.Hidden(); len(hidden) > 0 {
		ids := make([]string, len(hidden))
		for i, h := range hidden {
			ids[i] = string(h)
		}
		q.Set("hidden", strings.Join(ids, ","))
	}
	return q
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// knownSources merges configured source ids with those present in the
// store, configured ones first.
func knownSources(configured []string, store *calendar.Store) []model.SourceID {
	seen := make(map[model.SourceID]bool)
	out := make([]model.SourceID, 0, len(configured))
	for _, id := range configured {
		sid := model.SourceID(id)
		if !seen[sid] {
			seen[sid] = true
			out = append(out, sid)
		}
	}
	for _, sid := range store.Sources() {
		if !seen[sid] {
			seen[sid] = true
			out = append(out, sid)
		}
	}
	return out
}
