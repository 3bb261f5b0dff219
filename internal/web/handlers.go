package web

import (
	"encoding/json"
	"net/http"
	"time"

	"calview/internal/calendar"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/source"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type sourceDTO struct {
	ID     model.SourceID `json:"id"`
	Label  string         `json:"label"`
	Color  string         `json:"color"`
	Kind   string         `json:"kind"`
	Events int            `json:"events"`
}

// handleSources lists the configured sources with their current event
// counts. Provider URLs and paths are not exposed.
func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	store, _, _ := s.backend.Snapshot()
	counts := store.CountBySource()

	out := make([]sourceDTO, 0, len(s.cfg.Sources))
	for _, src := range s.cfg.Sources {
		id := model.SourceID(src.ID)
		out = append(out, sourceDTO{
			ID:     id,
			Label:  src.Label,
			Color:  src.Color,
			Kind:   src.Type,
			Events: counts[id],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type eventsResponse struct {
	Generation      uint64                 `json:"generation"`
	UpdatedAt       time.Time              `json:"updated_at"`
	DisplayTimeZone string                 `json:"display_timezone"`
	Events          []*model.CalendarEvent `json:"events"`
}

// handleEvents returns every event of the current store. The encoded body
// is reused until the aggregator swaps in a new store.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	store, gen, updatedAt := s.backend.Snapshot()

	s.eventsMu.RLock()
	ec := s.eventsCache
	s.eventsMu.RUnlock()
	if ec != nil && ec.generation == gen {
		writeRawJSON(w, ec.body)
		return
	}

	body, err := json.Marshal(eventsResponse{
		Generation:      gen,
		UpdatedAt:       updatedAt,
		DisplayTimeZone: s.loc.String(),
		Events:          store.Events(),
	})
	if err != nil {
		appLog.Error("api events: encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode events")
		return
	}

	s.eventsMu.Lock()
	s.eventsCache = &eventsCache{generation: gen, body: body}
	s.eventsMu.Unlock()

	writeRawJSON(w, body)
}

func writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type viewResponse struct {
	State      *calendar.Selection `json:"state"`
	View       calendar.View       `json:"view"`
	Generation uint64              `json:"generation"`
}

// handleView projects the requested selection. See selectionFromQuery for
// the accepted parameters.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	store, gen, _ := s.backend.Snapshot()
	now := s.now().In(s.loc)

	sel, err := selectionFromQuery(r.URL.Query(), now, knownSources(s.sourceIDs(), store))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := calendar.NewProjector(store, s.opts).Project(sel, now)
	writeJSON(w, http.StatusOK, viewResponse{State: sel, View: view, Generation: gen})
}

// handleRefresh re-aggregates all sources synchronously. Partial provider
// failures still produce a new store and are reported alongside it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.Refresh(r.Context())

	type refreshResponse struct {
		source.RefreshResult
		Error string `json:"error,omitempty"`
	}
	out := refreshResponse{RefreshResult: res}
	if err != nil {
		appLog.Error("api refresh: one or more sources failed", err)
		out.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sourceIDs() []string {
	ids := make([]string, len(s.cfg.Sources))
	for i, src := range s.cfg.Sources {
		ids[i] = src.ID
	}
	return ids
}
