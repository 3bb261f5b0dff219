package calendar

import (
	"sort"

	"calview/internal/model"
)

// Visibility maps a source to whether its events are shown. Sources missing
// from the map are shown: an unknown source is never silently dropped.
type Visibility map[model.SourceID]bool

// NewVisibility returns a map with every given source visible.
func NewVisibility(sources ...model.SourceID) Visibility {
	v := make(Visibility, len(sources))
	for _, s := range sources {
		v[s] = true
	}
	return v
}

// IsVisible reports whether e passes the filter.
func (v Visibility) IsVisible(e *model.CalendarEvent) bool {
	shown, ok := v[e.Source]
	return !ok || shown
}

func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for k, shown := range v {
		out[k] = shown
	}
	return out
}

// Hidden lists the sources explicitly switched off, sorted.
func (v Visibility) Hidden() []model.SourceID {
	var out []model.SourceID
	for k, shown := range v {
		if !shown {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
