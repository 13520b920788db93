package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"monthcal/internal/config"
	"monthcal/internal/dates"
	"monthcal/internal/grid"
	appLog "monthcal/internal/log"
	"monthcal/internal/monthview"
	"monthcal/internal/refresh"
)

// Refresher runs one feed refresh; *refresh.Refresher satisfies it.
type Refresher interface {
	Run(ctx context.Context) (refresh.Result, error)
}

// Server exposes the month view over HTTP.
type Server struct {
	cfg     *config.Config
	view    *monthview.Locked
	refresh Refresher
	mux     *http.ServeMux

	// background is the context for refreshes started by navigation.
	background context.Context
}

// NewServer constructs a new Server. refresher may be nil, in which case
// /api/refresh answers 503 and navigation does not trigger a refresh.
func NewServer(ctx context.Context, cfg *config.Config, view *monthview.Locked, refresher Refresher) *Server {
	s := &Server{
		cfg:        cfg,
		view:       view,
		refresh:    refresher,
		mux:        http.NewServeMux(),
		background: ctx,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. Empty
// credentials count as disabled.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="monthcal", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/month", s.handleMonth)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/calendars/active", s.handleCalendarActive)
	s.mux.HandleFunc("POST /api/bounds", s.handleBounds)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newLayoutResponse(s.view.Snapshot()))
}

// handleEvents returns the active events visible in the current grid.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	var resp eventsResponse
	_ = s.view.Do(func(v *monthview.View) error {
		events := v.Events()
		resp.Month = v.VisibleMonth().String()
		resp.Events = make([]eventDTO, 0, len(events))
		for _, ev := range events {
			resp.Events = append(resp.Events, newEventDTO(ev))
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleMonth navigates the visible month.
//
// POST /api/month?year=2025&month=3
// POST /api/month?step=next|prev
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var layout monthview.Layout
	err := s.view.Do(func(v *monthview.View) error {
		switch step := q.Get("step"); {
		case step == "next":
			v.NextMonth()
		case step == "prev":
			v.PrevMonth()
		case step != "":
			return badRequest("step must be next or prev")
		default:
			year, err := strconv.Atoi(q.Get("year"))
			if err != nil {
				return badRequest("year is required")
			}
			month := parseIntDefault(q.Get("month"), 0)
			if err := v.SetVisibleMonth(year, time.Month(month)); err != nil {
				return badRequest(err.Error())
			}
		}
		layout = v.Layout()
		return nil
	})
	if err != nil {
		writeRequestError(w, err)
		return
	}

	appLog.Debug("visible month changed", "month", layout.Month.String())
	s.refreshInBackground()
	writeJSON(w, http.StatusOK, newLayoutResponse(layout))
}

// handleSelect selects a day by point or by date.
//
// POST /api/select?x=120&y=340
// POST /api/select?date=2025-03-05
//
// A miss answers {"day": null}.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var resp selectResponse
	err := s.view.Do(func(v *monthview.View) error {
		if raw := q.Get("date"); raw != "" {
			d, err := dates.ParseDate(raw)
			if err != nil {
				return badRequest("date must be YYYY-MM-DD")
			}
			if v.SelectDay(d) {
				day, _ := v.Layout().Day(d)
				resp.Day = ptr(newDayDTO(day))
			}
			return nil
		}

		x, errX := strconv.ParseFloat(q.Get("x"), 64)
		y, errY := strconv.ParseFloat(q.Get("y"), 64)
		if errX != nil || errY != nil {
			return badRequest("x and y or date are required")
		}
		if day, ok := v.SelectAt(x, y); ok {
			resp.Day = ptr(newDayDTO(day))
		}
		return nil
	})
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCalendarActive toggles a calendar.
//
// POST /api/calendars/active?id=work&active=false
func (s *Server) handleCalendarActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	active, err := strconv.ParseBool(q.Get("active"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "active must be true or false")
		return
	}

	var layout monthview.Layout
	_ = s.view.Do(func(v *monthview.View) error {
		v.OnCalendarActiveChanged(id, active)
		layout = v.Layout()
		return nil
	})
	appLog.Info("calendar toggled", "id", id, "active", active)
	writeJSON(w, http.StatusOK, newLayoutResponse(layout))
}

// handleBounds resizes the grid container.
//
// POST /api/bounds?width=980&height=760
func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, errW := strconv.ParseFloat(q.Get("width"), 64)
	height, errH := strconv.ParseFloat(q.Get("height"), 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive numbers")
		return
	}

	var layout monthview.Layout
	_ = s.view.Do(func(v *monthview.View) error {
		v.SetBounds(grid.Rect{W: width, H: height})
		layout = v.Layout()
		return nil
	})
	writeJSON(w, http.StatusOK, newLayoutResponse(layout))
}

// handleRefresh runs a feed refresh synchronously.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh is not configured")
		return
	}

	res, err := s.refresh.Run(r.Context())
	resp := refreshResponse{
		Added:     res.Added,
		Updated:   res.Updated,
		Removed:   res.Removed,
		Truncated: res.Truncated,
		Failed:    res.Failed,
	}
	if err != nil {
		appLog.Error("api refresh finished with errors", err)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// refreshInBackground keeps the expansion window following the visible
// month.
func (s *Server) refreshInBackground() {
	if s.refresh == nil {
		return
	}
	go func() {
		if _, err := s.refresh.Run(s.background); err != nil {
			appLog.Error("navigation refresh finished with errors", err)
		}
	}()
}

// requestError carries a 400 message out of a locked section.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

func writeRequestError(w http.ResponseWriter, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeError(w, http.StatusBadRequest, re.msg)
		return
	}
	appLog.Error("api request failed", err)
	writeError(w, http.StatusInternalServerError, "internal error")
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

func ptr[T any](v T) *T { return &v }

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
