package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"crewcal/internal/calendar"
	"crewcal/internal/config"
	"crewcal/internal/dates"
	"crewcal/internal/i18n"
	appLog "crewcal/internal/log"
	"crewcal/internal/model"
)

// EventSource supplies the already-loaded events for the calendar.
type EventSource interface {
	Events() []model.EventSpan
	// EventsBetween returns at least the events touching from..to.
	EventsBetween(from, to dates.Day) []model.EventSpan
	Refresh(ctx context.Context) error
}

// Server is the headless host screen: a week strip and a month grid that
// share one selection, exposed as JSON.
type Server struct {
	cfg        *config.Config
	events     EventSource
	translator i18n.Translator
	clock      dates.Clock
	mux        *http.ServeMux

	selection  *calendar.Selection
	navigators map[calendar.Mode]*calendar.Navigator
}

// NewServer wires both views to the given clock and event source.
func NewServer(cfg *config.Config, events EventSource, tr i18n.Translator, clock dates.Clock) *Server {
	s := &Server{
		cfg:        cfg,
		events:     events,
		translator: tr,
		clock:      clock,
		mux:        http.NewServeMux(),
		selection:  &calendar.Selection{},
		navigators: make(map[calendar.Mode]*calendar.Navigator),
	}
	s.selection.OnChange = func(d *dates.Day) {
		if d == nil {
			appLog.Debug("selection cleared")
			return
		}
		appLog.Debug("selection changed", "date", *d)
	}
	for _, m := range []calendar.Mode{calendar.ModeWeek, calendar.ModeMonth} {
		s.navigators[m] = calendar.NewNavigator(calendar.Options{
			Mode:           m,
			Clock:          clock,
			SwipeThreshold: cfg.SwipeThreshold,
		})
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

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

func (s *Server) basicAuthEnabled() bool {
	return s.cfg.BasicAuth != nil && s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="crewcal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/calendar/{view}", s.handleCalendar)
	s.mux.HandleFunc("POST /api/calendar/{view}/next", s.handleStep(calendar.DirectionNext))
	s.mux.HandleFunc("POST /api/calendar/{view}/previous", s.handleStep(calendar.DirectionPrevious))
	s.mux.HandleFunc("POST /api/calendar/{view}/swipe", s.handleSwipe)

	s.mux.HandleFunc("POST /api/selection", s.handleSelect)
	s.mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)

	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) locale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		m, ok := s.translator.(acceptLanguageMatcher)
		if !ok {
			m = i18n.Default()
		}
		if tag, ok := m.MatchAcceptLanguage(h); ok {
			return tag
		}
	}
	return s.cfg.Locale
}

// acceptLanguageMatcher is satisfied by *i18n.Bundle.
type acceptLanguageMatcher interface {
	MatchAcceptLanguage(header string) (string, bool)
}

// navigator resolves the {view} path segment, writing a 404 when unknown.
func (s *Server) navigator(w http.ResponseWriter, r *http.Request) (*calendar.Navigator, bool) {
	mode, err := calendar.ParseMode(r.PathValue("view"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s.navigators[mode], true
}

func (s *Server) writeCalendar(w http.ResponseWriter, r *http.Request, n *calendar.Navigator) {
	locale := s.locale(r)
	win := n.Window()
	selected := s.selection.Ptr()
	days := win.Days()
	events := s.events.EventsBetween(days[0], days[len(days)-1])
	cells := calendar.BuildCells(win, events, selected, s.clock)

	resp := calendarResponse{
		View:     win.Mode.String(),
		Title:    win.Title(locale),
		Anchor:   win.Anchor,
		Timezone: n.Location().String(),
		Weekdays: calendar.WeekdayHeaders(locale),
		Selected: selected,
		Cells:    make([]cellDTO, 0, len(cells)),
	}
	for _, c := range cells {
		resp.Cells = append(resp.Cells, cellDTO{Cell: c, Highlight: c.Highlight()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	n, ok := s.navigator(w, r)
	if !ok {
		return
	}
	s.writeCalendar(w, r, n)
}

func (s *Server) handleStep(dir calendar.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := s.navigator(w, r)
		if !ok {
			return
		}
		if dir == calendar.DirectionNext {
			n.Next()
		} else {
			n.Previous()
		}
		s.writeCalendar(w, r, n)
	}
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	n, ok := s.navigator(w, r)
	if !ok {
		return
	}
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"dx\": number}")
		return
	}
	dir := n.DragEnd(req.DX)
	w.Header().Set("X-Swipe-Direction", dir.String())
	s.writeCalendar(w, r, n)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"date\": \"YYYY-MM-DD\"}")
		return
	}
	day, err := dates.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Week and month share the selection, so which view is tapped is
	// irrelevant.
	s.navigators[calendar.ModeWeek].Tap(s.selection, day)
	writeJSON(w, http.StatusOK, selectionResponse{Selected: s.selection.Ptr()})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	s.selection.Clear()
	writeJSON(w, http.StatusOK, selectionResponse{})
}

// handleEvents lists the events for the selected day, or every loaded event
// ("top events") when nothing is selected.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	locale := s.locale(r)
	all := s.events.Events()

	resp := eventsResponse{Events: []eventDTO{}}
	list := all
	if sel := s.selection.Ptr(); sel != nil {
		resp.Date = sel
		resp.Heading = s.translator.Translate("calendar.events_on", locale, map[string]string{"date": sel.String()})
		list = calendar.EventsOn(s.events.EventsBetween(*sel, *sel), *sel, s.clock.Loc())
	} else {
		resp.Heading = s.translator.Translate("calendar.top_events", locale, nil)
	}
	for _, ev := range list {
		dto := eventDTO{EventSpan: ev}
		if ev.Kind != "" {
			dto.KindLabel = s.translator.Translate("events.kind."+string(ev.Kind), locale, nil)
		}
		resp.Events = append(resp.Events, dto)
	}
	if len(resp.Events) == 0 {
		resp.Empty = s.translator.Translate("calendar.no_events", locale, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.events.Refresh(r.Context()); err != nil {
		appLog.Error("api refresh: partial failure", err)
		writeJSON(w, http.StatusOK, refreshResponse{Events: len(s.events.Events()), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Events: len(s.events.Events())})
}

type calendarResponse struct {
	View     string     `json:"view"`
	Title    string     `json:"title"`
	Anchor   dates.Day  `json:"anchor"`
	Timezone string     `json:"timezone"`
	Weekdays []string   `json:"weekdays"`
	Selected *dates.Day `json:"selected"`
	Cells    []cellDTO  `json:"cells"`
}

type cellDTO struct {
	calendar.Cell
	Highlight calendar.Highlight `json:"highlight"`
}

type swipeRequest struct {
	DX float64 `json:"dx"`
}

type selectRequest struct {
	Date string `json:"date"`
}

type selectionResponse struct {
	Selected *dates.Day `json:"selected"`
}

type eventDTO struct {
	model.EventSpan
	KindLabel string `json:"kind_label,omitempty"`
}

type eventsResponse struct {
	Date    *dates.Day `json:"date"`
	Heading string     `json:"heading"`
	Empty   string     `json:"empty,omitempty"`
	Events  []eventDTO `json:"events"`
}

type refreshResponse struct {
	Events int    `json:"events"`
	Error  string `json:"error,omitempty"`
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
