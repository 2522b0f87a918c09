package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crewcal/internal/config"
	"crewcal/internal/dates"
	"crewcal/internal/i18n"
	"crewcal/internal/model"
)

type staticEvents struct {
	events    []model.EventSpan
	refreshes int
	ranges    [][2]dates.Day
}

func (s *staticEvents) Events() []model.EventSpan       { return s.events }
func (s *staticEvents) Refresh(_ context.Context) error { s.refreshes++; return nil }

func (s *staticEvents) EventsBetween(from, to dates.Day) []model.EventSpan {
	s.ranges = append(s.ranges, [2]dates.Day{from, to})
	return s.events
}

func strp(s string) *string { return &s }

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *staticEvents) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	src := &staticEvents{events: []model.EventSpan{
		{ID: "menu", Title: "New menu tasting", Kind: model.KindTraining,
			StartDateTime: strp("2026-03-04T23:00:00Z"), EndDateTime: strp("2026-03-06T01:00:00Z")},
		{ID: "memo", Title: "Uniform memo", Kind: model.KindAnnouncement,
			StartDateTime: strp("2026-03-10T09:00:00Z")},
		{ID: "draft", Title: "Unscheduled"},
	}}
	clock := dates.FixedClock(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), time.UTC)
	return NewServer(cfg, src, i18n.Default(), clock), src
}

func do(t *testing.T, h http.Handler, method, target, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode: %v (%s)", method, target, err, rec.Body.String())
		}
	}
	return rec
}

type testCalendar struct {
	View     string   `json:"view"`
	Title    string   `json:"title"`
	Anchor   string   `json:"anchor"`
	Weekdays []string `json:"weekdays"`
	Selected *string  `json:"selected"`
	Cells    []struct {
		Date       string `json:"date"`
		IsToday    bool   `json:"is_today"`
		IsSelected bool   `json:"is_selected"`
		HasEvent   bool   `json:"has_event"`
		InMonth    bool   `json:"in_month"`
		Highlight  string `json:"highlight"`
	} `json:"cells"`
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestWeekView(t *testing.T) {
	s, _ := newTestServer(t, nil)
	var cal testCalendar
	rec := do(t, s.Handler(), http.MethodGet, "/api/calendar/week?locale=es", "", &cal)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cal.View != "week" || cal.Anchor != "2026-03-01" || cal.Title != "marzo de 2026" {
		t.Fatalf("calendar = %+v", cal)
	}
	if len(cal.Cells) != 7 || cal.Weekdays[0] != "dom" {
		t.Fatalf("cells = %d, weekdays = %v", len(cal.Cells), cal.Weekdays)
	}
	if !cal.Cells[2].IsToday || cal.Cells[2].Highlight != "today" {
		t.Fatalf("today cell = %+v", cal.Cells[2])
	}
	marked := []bool{false, false, false, true, true, true, false}
	for i, want := range marked {
		if cal.Cells[i].HasEvent != want {
			t.Errorf("%s has_event = %v, want %v", cal.Cells[i].Date, cal.Cells[i].HasEvent, want)
		}
	}
}

func TestAcceptLanguage(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		header  string
		title   string
		weekday string
	}{
		{"es", "marzo de 2026", "dom"},
		{"es-ES,es;q=0.9,en;q=0.8", "marzo de 2026", "dom"},
		{"fr-FR,fr;q=0.9", "March 2026", "Sun"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/calendar/month", nil)
		req.Header.Set("Accept-Language", tt.header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var cal testCalendar
		if err := json.Unmarshal(rec.Body.Bytes(), &cal); err != nil {
			t.Fatalf("%q: decode: %v", tt.header, err)
		}
		if cal.Title != tt.title || cal.Weekdays[0] != tt.weekday {
			t.Errorf("Accept-Language %q: title = %q, weekdays[0] = %q, want %q, %q",
				tt.header, cal.Title, cal.Weekdays[0], tt.title, tt.weekday)
		}
	}

	// An explicit query parameter wins over the header.
	req := httptest.NewRequest(http.MethodGet, "/api/calendar/month?locale=en", nil)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var cal testCalendar
	if err := json.Unmarshal(rec.Body.Bytes(), &cal); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cal.Title != "March 2026" {
		t.Fatalf("title = %q, want query locale to win", cal.Title)
	}
}

func TestNavigationAndUnknownView(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var cal testCalendar
	do(t, h, http.MethodPost, "/api/calendar/month/next", "", &cal)
	if cal.Anchor != "2026-04-01" || len(cal.Cells) != 42 {
		t.Fatalf("month after next = %s with %d cells", cal.Anchor, len(cal.Cells))
	}
	if cal.Cells[0].InMonth || !cal.Cells[3].InMonth {
		t.Fatalf("in_month flags wrong: %+v %+v", cal.Cells[0], cal.Cells[3])
	}

	// The week view is independent of the month view.
	do(t, h, http.MethodPost, "/api/calendar/week/previous", "", &cal)
	if cal.Anchor != "2026-02-22" {
		t.Fatalf("week after previous = %s", cal.Anchor)
	}

	if rec := do(t, h, http.MethodGet, "/api/calendar/day", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown view status = %d", rec.Code)
	}
}

func TestCalendarAsksForVisibleRange(t *testing.T) {
	s, src := newTestServer(t, nil)
	h := s.Handler()

	for i := 0; i < 3; i++ {
		do(t, h, http.MethodPost, "/api/calendar/month/next", "", nil)
	}
	last := src.ranges[len(src.ranges)-1]
	if last[0] != dates.Of(2026, time.May, 31) || last[1] != dates.Of(2026, time.July, 11) {
		t.Fatalf("June grid range = %v..%v", last[0], last[1])
	}

	do(t, h, http.MethodPost, "/api/selection", `{"date": "2026-03-05"}`, nil)
	do(t, h, http.MethodGet, "/api/events", "", nil)
	last = src.ranges[len(src.ranges)-1]
	if last[0] != dates.Of(2026, time.March, 5) || last[1] != last[0] {
		t.Fatalf("selected day range = %v..%v", last[0], last[1])
	}
}

func TestSwipe(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var cal testCalendar
	rec := do(t, h, http.MethodPost, "/api/calendar/week/swipe", `{"dx": -20}`, &cal)
	if rec.Header().Get("X-Swipe-Direction") != "none" || cal.Anchor != "2026-03-01" {
		t.Fatalf("short swipe moved to %s (%s)", cal.Anchor, rec.Header().Get("X-Swipe-Direction"))
	}
	rec = do(t, h, http.MethodPost, "/api/calendar/week/swipe", `{"dx": -400}`, &cal)
	if rec.Header().Get("X-Swipe-Direction") != "next" || cal.Anchor != "2026-03-08" {
		t.Fatalf("long swipe moved to %s (%s)", cal.Anchor, rec.Header().Get("X-Swipe-Direction"))
	}
	if rec := do(t, h, http.MethodPost, "/api/calendar/week/swipe", `nope`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body status = %d", rec.Code)
	}
}

func TestSelectionToggleAndEvents(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var sel struct {
		Selected *string `json:"selected"`
	}
	do(t, h, http.MethodPost, "/api/selection", `{"date": "2026-03-05"}`, &sel)
	if sel.Selected == nil || *sel.Selected != "2026-03-05" {
		t.Fatalf("selected = %v", sel.Selected)
	}

	var cal testCalendar
	do(t, h, http.MethodGet, "/api/calendar/month", "", &cal)
	if cal.Selected == nil || *cal.Selected != "2026-03-05" || !cal.Cells[4].IsSelected || cal.Cells[4].Highlight != "selected" {
		t.Fatalf("month view does not show the selection: %+v", cal.Cells[4])
	}

	var evs struct {
		Date    *string `json:"date"`
		Heading string  `json:"heading"`
		Events  []struct {
			ID        string `json:"id"`
			KindLabel string `json:"kind_label"`
		} `json:"events"`
	}
	do(t, h, http.MethodGet, "/api/events", "", &evs)
	if evs.Heading != "Events on 2026-03-05" || len(evs.Events) != 1 || evs.Events[0].ID != "menu" || evs.Events[0].KindLabel != "Training" {
		t.Fatalf("events for selected day = %+v", evs)
	}

	// Tapping the same day again clears the selection.
	do(t, h, http.MethodPost, "/api/selection", `{"date": "2026-03-05"}`, &sel)
	if sel.Selected != nil {
		t.Fatalf("selection after second tap = %s", *sel.Selected)
	}

	do(t, h, http.MethodPost, "/api/selection", `{"date": "2026-03-10"}`, &sel)
	do(t, h, http.MethodDelete, "/api/selection", "", &sel)
	if sel.Selected != nil {
		t.Fatal("DELETE should clear the selection")
	}

	evs.Date = nil
	do(t, h, http.MethodGet, "/api/events?locale=es", "", &evs)
	if evs.Date != nil || evs.Heading != "Ver eventos destacados" || len(evs.Events) != 3 {
		t.Fatalf("top events = %+v", evs)
	}

	if rec := do(t, h, http.MethodPost, "/api/selection", `{"date": "March 5"}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	s, src := newTestServer(t, nil)
	var resp struct {
		Events int `json:"events"`
	}
	do(t, s.Handler(), http.MethodPost, "/api/refresh", "", &resp)
	if src.refreshes != 1 || resp.Events != 3 {
		t.Fatalf("refreshes = %d, events = %d", src.refreshes, resp.Events)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "manager", Password: "s3cret"}
	})
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health behind auth = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/calendar/week", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/calendar/week", nil)
	req.SetBasicAuth("manager", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d", rec.Code)
	}
}
