package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/calendar"
	"calview/internal/config"
	"calview/internal/model"
	"calview/internal/source"
)

var testNow = time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)

type fakeBackend struct {
	mu         sync.Mutex
	store      *calendar.Store
	generation uint64
	refreshes  int
	refreshErr error
}

func (f *fakeBackend) Snapshot() (*calendar.Store, uint64, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store, f.generation, testNow
}

func (f *fakeBackend) Refresh(context.Context) (source.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	f.generation++
	return source.RefreshResult{Generation: f.generation, Events: f.store.Len()}, f.refreshErr
}

func (f *fakeBackend) swap(store *calendar.Store) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = store
	f.generation++
}

func ev(id string, src model.SourceID, start time.Time) model.CalendarEvent {
	return model.CalendarEvent{ID: id, Title: "title " + id, Source: src, Kind: model.KindMeeting, Start: start, End: start.Add(time.Hour)}
}

func testStore(t *testing.T) *calendar.Store {
	t.Helper()
	store, errs := calendar.NewStore([]model.CalendarEvent{
		ev("1", model.SourcePlatform, time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)),
		ev("2", model.SourceGoogle, time.Date(2025, 3, 5, 10, 15, 0, 0, time.UTC)),
		ev("3", model.SourceMicrosoft, time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC)),
		ev("4", "partner", time.Date(2025, 3, 6, 8, 0, 0, 0, time.UTC)),
	})
	require.Empty(t, errs)
	return store
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*Server, *fakeBackend) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}
	backend := &fakeBackend{store: testStore(t), generation: 1}

	s, err := NewServer(cfg, backend)
	require.NoError(t, err)
	s.now = func() time.Time { return testNow }
	return s, backend
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNewServerErrors(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil, &fakeBackend{})
	require.Error(t, err)

	_, err = NewServer(config.DefaultConfig(), nil)
	require.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Timezone = "Nowhere/Special"
	_, err = NewServer(cfg, &fakeBackend{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health").Code)

	rec := do(t, s, http.MethodGet, "/api/sources")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSources(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/sources")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]sourceDTO](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, model.SourcePlatform, got[0].ID)
	assert.Equal(t, "Platform", got[0].Label)
	assert.Equal(t, 1, got[0].Events)
	assert.Equal(t, config.SourceMock, got[1].Kind)
}

func TestEventsCachedPerGeneration(t *testing.T) {
	t.Parallel()

	s, backend := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[eventsResponse](t, rec)
	assert.Equal(t, uint64(1), first.Generation)
	assert.Len(t, first.Events, 4)
	assert.Equal(t, "UTC", first.DisplayTimeZone)

	s.eventsMu.RLock()
	cached := s.eventsCache
	s.eventsMu.RUnlock()
	require.NotNil(t, cached)
	assert.Equal(t, rec.Body.Bytes(), cached.body)

	assert.Equal(t, rec.Body.String(), do(t, s, http.MethodGet, "/api/events").Body.String())

	store, errs := calendar.NewStore([]model.CalendarEvent{ev("only", model.SourcePlatform, testNow)})
	require.Empty(t, errs)
	backend.swap(store)

	second := decode[eventsResponse](t, do(t, s, http.MethodGet, "/api/events"))
	assert.Equal(t, uint64(2), second.Generation)
	require.Len(t, second.Events, 1)
	assert.Equal(t, "only", second.Events[0].ID)
}

func TestView(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)

	t.Run("month defaults to today with hidden source filtered", func(t *testing.T) {
		t.Parallel()

		rec := do(t, s, http.MethodGet, "/api/view?hidden=google")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[viewResponse](t, rec)

		assert.Equal(t, calendar.ViewMonth, got.View.Mode)
		assert.Equal(t, calendar.NewDate(2025, 3, 5), got.State.Reference)
		assert.False(t, got.State.Visibility[model.SourceGoogle])
		assert.True(t, got.State.Visibility["partner"])

		require.NotNil(t, got.View.Month)
		require.Len(t, got.View.Month.Cells, calendar.MonthGridCells)
		for _, c := range got.View.Month.Cells {
			if c.Date == calendar.NewDate(2025, 3, 5) {
				require.Len(t, c.Events, 1)
				assert.Equal(t, "1", c.Events[0].ID)
				assert.True(t, c.IsToday)
			}
		}
	})

	t.Run("navigate week forward", func(t *testing.T) {
		t.Parallel()

		got := decode[viewResponse](t, do(t, s, http.MethodGet, "/api/view?mode=week&ref=2025-03-05&action=next"))
		assert.Equal(t, calendar.NewDate(2025, 3, 12), got.State.Reference)
		require.NotNil(t, got.View.Week)
		assert.Equal(t, calendar.NewDate(2025, 3, 9), got.View.Week.Days[0].Date)
	})

	t.Run("select in month mode", func(t *testing.T) {
		t.Parallel()

		got := decode[viewResponse](t, do(t, s, http.MethodGet, "/api/view?mode=month&ref=2025-03-05&select=2025-04-02"))
		require.NotNil(t, got.State.Selected)
		assert.Equal(t, calendar.NewDate(2025, 4, 2), *got.State.Selected)
		assert.Equal(t, time.April, got.State.Reference.Month)
	})

	t.Run("agenda", func(t *testing.T) {
		t.Parallel()

		got := decode[viewResponse](t, do(t, s, http.MethodGet, "/api/view?mode=agenda"))
		require.NotNil(t, got.View.Agenda)
		ids := make([]string, 0)
		for _, e := range got.View.Agenda.Events {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, []string{"1", "2", "4", "3"}, ids)
	})

	t.Run("day with selection", func(t *testing.T) {
		t.Parallel()

		got := decode[viewResponse](t, do(t, s, http.MethodGet, "/api/view?mode=day&ref=2025-03-05&selected=2025-03-05"))
		require.NotNil(t, got.View.Day)
		assert.True(t, got.View.Day.Day.IsSelected)
		assert.Len(t, got.View.Day.Day.Hours[10].Events, 2)
	})

	for _, target := range []string{
		"/api/view?mode=year",
		"/api/view?ref=05/03/2025",
		"/api/view?selected=tomorrow",
		"/api/view?action=sideways",
		"/api/view?select=2025-13-01",
	} {
		target := target
		t.Run("bad request "+target, func(t *testing.T) {
			t.Parallel()

			rec := do(t, s, http.MethodGet, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	s, backend := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, got["generation"])
	assert.NotContains(t, got, "error")

	backend.mu.Lock()
	backend.refreshErr = errors.New("source google: down")
	backend.mu.Unlock()

	got = decode[map[string]any](t, do(t, s, http.MethodPost, "/api/refresh"))
	assert.Equal(t, "source google: down", got["error"])
	assert.Equal(t, 2, backend.refreshes)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/refresh").Code)
}

func TestCalendarPage(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)

	for _, mode := range []string{"month", "week", "day", "agenda"} {
		rec := do(t, s, http.MethodGet, "/calendar?ref=2025-03-05&mode="+mode)
		require.Equal(t, http.StatusOK, rec.Code, mode)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

		body := rec.Body.String()
		assert.Contains(t, body, `data-ready="true"`, mode)
		assert.Contains(t, body, `data-mode="`+mode+`"`)
		assert.Contains(t, body, "title 1", mode)
		assert.Contains(t, body, "Platform")
	}

	body := do(t, s, http.MethodGet, "/calendar?ref=2025-03-05&hidden=platform").Body.String()
	assert.NotContains(t, body, "title 1")
	assert.Contains(t, body, "title 2")
	assert.True(t, strings.Contains(body, "March 2025"))

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/calendar?mode=year").Code)

	rec := do(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/calendar", rec.Header().Get("Location"))
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/nope").Code)

	rec := do(t, s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "could not be found")
}

func TestRun(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, func(cfg *config.Config) { cfg.Listen = "127.0.0.1:0" })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
