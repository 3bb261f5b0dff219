// Package web serves the calendar views as JSON and as a server-rendered
// HTML page suitable for screenshots.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"calview/internal/calendar"
	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/source"
)

// Backend is what the server reads events from and asks to refresh.
// *source.Aggregator implements it.
type Backend interface {
	Snapshot() (*calendar.Store, uint64, time.Time)
	Refresh(ctx context.Context) (source.RefreshResult, error)
}

// Server provides the HTTP API and the /calendar page.
type Server struct {
	cfg     *config.Config
	backend Backend
	opts    calendar.Options
	loc     *time.Location
	now     func() time.Time
	handler http.Handler

	// /api/events response, valid for one store generation.
	eventsMu    sync.RWMutex
	eventsCache *eventsCache
}

type eventsCache struct {
	generation uint64
	body       []byte
}

// NewServer constructs a Server for cfg. The display zone and projection
// options are taken from cfg.
func NewServer(cfg *config.Config, backend Backend) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("web: config is nil")
	}
	if backend == nil {
		return nil, errors.New("web: backend is nil")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		backend: backend,
		opts:    cfg.CalendarOptions(),
		loc:     loc,
		now:     time.Now,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.RequestID, requestLogger, middleware.Recoverer, middleware.StripSlashes)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "the requested resource could not be found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("the %s method is not supported for this resource", r.Method))
	})

	// /health is always reachable without credentials.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			r.Use(s.basicAuth)
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/calendar", http.StatusFound)
		})
		r.Get("/calendar", s.handleCalendarPage)

		r.Route("/api", func(r chi.Router) {
			r.Get("/sources", s.handleSources)
			r.Get("/events", s.handleEvents)
			r.Get("/view", s.handleView)
			r.Post("/refresh", s.handleRefresh)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		appLog.Debug(r.URL.RequestURI(),
			"method", r.Method,
			"status", ww.Status(),
			"addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
			"elapsed", time.Since(start).String(),
		)
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials disable it.
func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calview", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
