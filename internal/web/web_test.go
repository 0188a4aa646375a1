package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecal/internal/catalog"
	"gamecal/internal/config"
	"gamecal/internal/model"
)

type staticSource struct {
	cat *catalog.Catalog
}

func (s staticSource) Current() *catalog.Catalog { return s.cat }

func testCatalog() *catalog.Catalog {
	return catalog.New(
		[]model.Game{
			{ID: "nikke", Name: "니케"},
			{ID: "genshin", Name: "원신"},
		},
		[]model.Update{
			{GameID: "nikke", UpdateDate: "2025-06-01", EndDate: "2025-06-10"},
			{GameID: "genshin", UpdateDate: "2025-06-05"},
			{GameID: "steam_9", Name: "Indie", UpdateDate: "2025-09-01"},
			{GameID: "mario", Platform: "switch", UpdateDate: "2025-10-01"},
			{GameID: "genshin", UpdateDate: "2023-01-01"},
		},
	)
}

func newTestServer(t *testing.T, cfg *config.Config, cat *catalog.Catalog) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := NewServer(cfg, staticSource{cat: cat})
	s.now = func() time.Time {
		return time.Date(2025, time.June, 15, 12, 0, 0, 0, s.loc)
	}
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeEvents(t *testing.T, rec *httptest.ResponseRecorder) eventsResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, nil, nil).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestEvents(t *testing.T) {
	h := newTestServer(t, nil, testCatalog()).Handler()

	tests := []struct {
		name      string
		target    string
		shown     int
		events    int
		selection []string
	}{
		{"default selection", "/api/events", 4, 5, []string{"genshin", "nikke", "steam_all", "switch_all"}},
		{"explicit games", "/api/events?games=nikke", 1, 2, []string{"nikke"}},
		{"empty games shows all", "/api/events?games=", 4, 5, []string{}},
		{"console preset", "/api/events?preset=console", 2, 2, []string{"steam_all", "switch_all"}},
		{"games override preset", "/api/events?preset=console&games=genshin", 1, 1, []string{"genshin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeEvents(t, get(t, h, tt.target))
			assert.Equal(t, tt.shown, resp.Stats.Shown)
			assert.Equal(t, 5, resp.Stats.Total)
			assert.Equal(t, tt.events, resp.Stats.Events)
			assert.Len(t, resp.Events, tt.events)
			assert.Equal(t, tt.selection, resp.Selection)
			assert.Equal(t, "Asia/Seoul", resp.DisplayTimeZone)
		})
	}
}

func TestEvents_SortedAndLabelled(t *testing.T) {
	h := newTestServer(t, nil, testCatalog()).Handler()

	resp := decodeEvents(t, get(t, h, "/api/events?limit=3"))
	assert.Equal(t, 3, resp.EventLimit)
	assert.Equal(t, "표시: 4 / 전체: 5", resp.StatsLabel)

	require.Len(t, resp.Events, 5)
	assert.Equal(t, "니케", resp.Events[0].Title)
	assert.Equal(t, model.MilestoneStart, resp.Events[0].ExtendedProps.Milestone)
	assert.Equal(t, model.MilestoneEnd, resp.Events[1].ExtendedProps.Milestone)
	assert.Equal(t, "#dc3545", resp.Events[1].BackgroundColor)
	assert.Equal(t, "원신", resp.Events[2].Title)
	assert.Equal(t, "mario", resp.Events[3].Title)
	assert.Equal(t, "Indie", resp.Events[4].Title)
	for i, ev := range resp.Events {
		assert.Equal(t, i, ev.ExtendedProps.Order)
	}

	rec := get(t, h, "/api/events?limit=3")
	var raw struct {
		Events []struct {
			ExtendedProps map[string]any `json:"extendedProps"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Events, 5)
	assert.Equal(t, float64(4), raw.Events[4].ExtendedProps["order"])

	resp = decodeEvents(t, get(t, h, "/api/events?limit=abc"))
	assert.Equal(t, 10, resp.EventLimit)
}

func TestEvents_Errors(t *testing.T) {
	rec := get(t, newTestServer(t, nil, testCatalog()).Handler(), "/api/events?preset=favorites")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown preset")

	rec = get(t, newTestServer(t, nil, nil).Handler(), "/api/events")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"data not loaded"}`, rec.Body.String())
}

func TestFilters(t *testing.T) {
	rec := get(t, newTestServer(t, nil, testCatalog()).Handler(), "/api/filters")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp filtersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 2)
	assert.Len(t, resp.Groups[0].Options, 2)
	assert.Len(t, resp.Groups[1].Options, 2)
	assert.Equal(t, []string{"genshin", "nikke", "steam_all", "switch_all"}, resp.Selected)
}

func TestGames(t *testing.T) {
	rec := get(t, newTestServer(t, nil, testCatalog()).Handler(), "/api/games")
	require.Equal(t, http.StatusOK, rec.Code)

	var games []model.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &games))
	assert.Len(t, games, 2)
}

func TestICS(t *testing.T) {
	rec := get(t, newTestServer(t, nil, testCatalog()).Handler(), "/calendar.ics?games=nikke")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20250601")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20250610")
	assert.NotContains(t, body, "20250605")
}

func TestStaticAndUnknownAPI(t *testing.T) {
	h := newTestServer(t, nil, testCatalog()).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "게임 업데이트 캘린더")

	rec = get(t, h, "/assets/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(t, cfg, testCatalog()).Handler()

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/api/events")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResolveLocation(t *testing.T) {
	assert.Equal(t, "Asia/Seoul", ResolveLocation("Asia/Seoul").String())
	assert.Equal(t, time.Local, ResolveLocation(""))
	assert.Equal(t, time.Local, ResolveLocation("Mars/Olympus"))
}

func TestCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CORSOrigins = []string{"https://cal.example.com"}
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(t, cfg, testCatalog()).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/events", nil)
	req.Header.Set("Origin", "https://cal.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://cal.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
