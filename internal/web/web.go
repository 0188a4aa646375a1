package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"

	"gamecal/internal/calendar"
	"gamecal/internal/catalog"
	"gamecal/internal/config"
	"gamecal/internal/export"
	appLog "gamecal/internal/log"
	"gamecal/internal/model"
)

// CatalogSource hands out the current catalog. *refresh.Runner implements it.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// Server provides the calendar page and its JSON/ICS APIs.
type Server struct {
	cfg    *config.Config
	source CatalogSource
	loc    *time.Location
	mux    *http.ServeMux

	// now is swapped in tests.
	now func() time.Time
}

// embeddedStatic contains the calendar page and its assets.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, source CatalogSource) *Server {
	s := &Server{
		cfg:    cfg,
		source: source,
		loc:    ResolveLocation(cfg.Timezone),
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	// CORS wraps auth so preflight requests are answered without credentials.
	if len(s.cfg.CORSOrigins) > 0 {
		appLog.Info("CORS enabled", "origins", strings.Join(s.cfg.CORSOrigins, ","))
		h = cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization"},
			AllowCredentials: s.basicAuthEnabled(),
			MaxAge:           300,
		})(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gamecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
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

// Serve runs the HTTP server until ctx is canceled, then shuts it down.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/filters", s.handleFilters)
	s.mux.HandleFunc("/api/games", s.handleGames)
	s.mux.HandleFunc("/calendar.ics", s.handleICS)

	// Everything else is the embedded page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded page from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// /api/* 는 정적 UI에서 서빙하지 않는다.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events          []model.CalendarEvent `json:"events"`
	Stats           calendar.Stats        `json:"stats"`
	StatsLabel      string                `json:"stats_label"`
	Selection       []string              `json:"selection"`
	EventLimit      int                   `json:"event_limit"`
	DisplayTimeZone string                `json:"display_timezone"`
	LoadedAt        time.Time             `json:"loaded_at"`
}

// handleEvents returns the sorted calendar events for a selection.
//
// GET /api/events?games=nikke,steam_all&preset=console&limit=5
//   - games:  comma separated selection; present but empty shows everything.
//     Absent means the default selection.
//   - preset: all | none | console | subculture, applied before games.
//   - limit:  per-day event cap echoed back for the page (0 = no cap).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.catalog(w)
	if !ok {
		return
	}

	state, err := s.stateFor(r, cat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := state.View(cat, s.now(), s.viewOptions())

	limit := parseIntDefault(r.URL.Query().Get("limit"), s.cfg.EventLimit)
	if limit < 0 {
		limit = 0
	}

	selection := state.Selection().IDs()
	slices.Sort(selection)

	appLog.Debug("api events request",
		"selection", strings.Join(selection, ","),
		"shown", view.Stats.Shown,
		"events", view.Stats.Events,
	)

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:          view.Events,
		Stats:           view.Stats,
		StatsLabel:      view.Stats.Label(),
		Selection:       selection,
		EventLimit:      limit,
		DisplayTimeZone: s.loc.String(),
		LoadedAt:        cat.LoadedAt,
	})
}

// filtersResponse is the JSON response shape for /api/filters.
type filtersResponse struct {
	Groups   []calendar.Group `json:"groups"`
	Selected []string         `json:"selected"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.catalog(w)
	if !ok {
		return
	}

	selected := calendar.NewState(cat, s.cfg.Subculture).Selection().IDs()
	slices.Sort(selected)

	writeJSON(w, http.StatusOK, filtersResponse{
		Groups:   calendar.Groups(cat, s.cfg.Subculture),
		Selected: selected,
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.catalog(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cat.Games)
}

// handleICS serves the same selection as /api/events as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	cat, ok := s.catalog(w)
	if !ok {
		return
	}

	state, err := s.stateFor(r, cat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	view := state.View(cat, now, s.viewOptions())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := export.WriteICS(w, view.Events, export.Options{Location: s.loc, Now: now}); err != nil {
		appLog.Error("failed to write ICS response", err)
	}
}

func (s *Server) catalog(w http.ResponseWriter) (*catalog.Catalog, bool) {
	cat := s.source.Current()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "data not loaded")
		return nil, false
	}
	return cat, true
}

func (s *Server) stateFor(r *http.Request, cat *catalog.Catalog) (*calendar.State, error) {
	state := calendar.NewState(cat, s.cfg.Subculture)
	q := r.URL.Query()

	if preset := q.Get("preset"); preset != "" {
		if err := state.ApplyPreset(cat, preset); err != nil {
			return nil, err
		}
	}
	if q.Has("games") {
		state.Set(calendar.NewSelection(strings.Split(q.Get("games"), ",")...))
	}
	return state, nil
}

func (s *Server) viewOptions() calendar.ViewOptions {
	return ViewOptions(s.cfg, s.loc)
}

// ViewOptions maps the configuration onto the calendar pipeline knobs.
func ViewOptions(cfg *config.Config, loc *time.Location) calendar.ViewOptions {
	return calendar.ViewOptions{
		Filter: calendar.FilterOptions{WindowMonths: cfg.WindowMonths, Location: loc},
		Project: calendar.ProjectOptions{
			Palette: calendar.Palette{
				Update:    cfg.Colors.Update,
				Broadcast: cfg.Colors.Broadcast,
				Release:   cfg.Colors.Release,
				End:       cfg.Colors.End,
			},
			Location: loc,
		},
		Priority: cfg.Priority,
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ResolveLocation loads an IANA zone, falling back to time.Local.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
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
