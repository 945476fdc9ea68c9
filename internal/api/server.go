// Package api is the dashboard's HTTP surface: JSON views of the engine's
// derived state, waypoint commands, live updates over SSE and websocket,
// and rendered charts.
package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/flight.dashboard/internal/config"
	"github.com/banshee-data/flight.dashboard/internal/engine"
	"github.com/banshee-data/flight.dashboard/internal/httputil"
	"github.com/banshee-data/flight.dashboard/internal/monitoring"
	"github.com/banshee-data/flight.dashboard/internal/poller"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
	"github.com/banshee-data/flight.dashboard/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Engine is the engine surface the API reads and drives.
type Engine interface {
	State() engine.DerivedVisualState
	History() []telemetry.Sample
	Window() []telemetry.Sample
	WaypointState() engine.WaypointState
	Markers() []telemetry.Marker
	OnMapClick(p telemetry.LatLng) bool
	SetTargetCount(n int) error
	ClearWaypoints()
	Subscribe() (string, <-chan engine.Update)
	Unsubscribe(id string)
	Stats() engine.Stats
}

// Poller is the poller surface the API reports on and triggers.
type Poller interface {
	Stats() poller.Stats
	Trigger()
	Interval() time.Duration
}

type Server struct {
	eng      Engine
	poller   Poller
	cfg      *config.DashboardConfig
	upgrader websocket.Upgrader
	logf     func(format string, args ...any)
}

// NewServer returns a server over eng. p may be nil when no poller runs.
func NewServer(eng Engine, p Poller, cfg *config.DashboardConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyDashboardConfig()
	}
	return &Server{
		eng:    eng,
		poller: p,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logf: monitoring.Tagged("api"),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets websocket upgrades pass through the middleware.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/window", s.showWindow)
	mux.HandleFunc("/api/history", s.showHistory)
	mux.HandleFunc("/api/waypoints", s.handleWaypoints)
	mux.HandleFunc("/api/waypoints/target", s.setTargetCount)
	mux.HandleFunc("/api/markers", s.showMarkers)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/refresh", s.refresh)
	mux.HandleFunc("/api/events", s.streamEvents)
	mux.HandleFunc("/ws", s.serveWebSocket)
	mux.HandleFunc("/charts/attitude", s.attitudeChart)
	mux.HandleFunc("/charts/attitude.png", s.attitudePlot)
	return mux
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, s.eng.State())
}

func (s *Server) showWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	st := s.eng.State()
	httputil.WriteJSONOK(w, struct {
		Window        telemetry.Window   `json:"window"`
		HistoryLength int                `json:"historyLength"`
		Samples       []telemetry.Sample `json:"samples"`
	}{st.Window, st.HistoryLength, nonNil(s.eng.Window())})
}

func (s *Server) showHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, nonNil(s.eng.History()))
}

func nonNil(samples []telemetry.Sample) []telemetry.Sample {
	if samples == nil {
		return []telemetry.Sample{}
	}
	return samples
}

type clickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (c clickRequest) point() (telemetry.LatLng, error) {
	if c.Lat == nil || c.Lng == nil {
		return telemetry.LatLng{}, errors.New("lat and lng are required")
	}
	p := telemetry.LatLng{Lat: *c.Lat, Lng: *c.Lng}
	if !p.Valid() {
		return telemetry.LatLng{}, errors.New("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	return p, nil
}

type clickResponse struct {
	Accepted bool `json:"accepted"`
	engine.WaypointState
}

func (s *Server) handleWaypoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.eng.WaypointState())

	case http.MethodPost:
		var req clickRequest
		if err := httputil.DecodeJSONBody(r, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		p, err := req.point()
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		accepted := s.eng.OnMapClick(p)
		httputil.WriteJSONOK(w, clickResponse{Accepted: accepted, WaypointState: s.eng.WaypointState()})

	case http.MethodDelete:
		s.eng.ClearWaypoints()
		httputil.WriteJSONOK(w, s.eng.WaypointState())

	default:
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

type targetRequest struct {
	TargetCount *int `json:"targetCount"`
}

func (s *Server) setTargetCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPut, http.MethodPost)
		return
	}

	var req targetRequest
	if err := httputil.DecodeJSONBody(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.TargetCount == nil {
		httputil.BadRequest(w, "targetCount is required")
		return
	}
	if err := s.eng.SetTargetCount(*req.TargetCount); err != nil {
		if errors.Is(err, telemetry.ErrNegativeTarget) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSONOK(w, s.eng.WaypointState())
}

func (s *Server) showMarkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, s.eng.Markers())
}

type configResponse struct {
	FeedURL         string                  `json:"feedUrl"`
	PollInterval    string                  `json:"pollInterval"`
	FetchTimeout    string                  `json:"fetchTimeout"`
	WindowSize      int                     `json:"windowSize"`
	SwitchThreshold int                     `json:"switchThreshold"`
	FallbackCenter  telemetry.LatLng        `json:"fallbackCenter"`
	LabelTimezone   string                  `json:"labelTimezone"`
	Series          []telemetry.SeriesStyle `json:"series"`
	Version         string                  `json:"version"`
	GitSHA          string                  `json:"gitSha"`
	BuildTime       string                  `json:"buildTime"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	lat, lng := s.cfg.GetFallbackCenter()
	httputil.WriteJSONOK(w, configResponse{
		FeedURL:         s.cfg.GetFeedURL(),
		PollInterval:    s.cfg.GetPollInterval().String(),
		FetchTimeout:    s.cfg.GetFetchTimeout().String(),
		WindowSize:      s.cfg.GetWindowSize(),
		SwitchThreshold: s.cfg.GetSwitchThreshold(),
		FallbackCenter:  telemetry.LatLng{Lat: lat, Lng: lng},
		LabelTimezone:   s.cfg.GetLabelLocation().String(),
		Series:          telemetry.SeriesStyles,
		Version:         version.Version,
		GitSHA:          version.GitSHA,
		BuildTime:       version.BuildTime,
	})
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	resp := struct {
		Engine engine.Stats  `json:"engine"`
		Poller *poller.Stats `json:"poller,omitempty"`
	}{Engine: s.eng.Stats()}
	if s.poller != nil {
		ps := s.poller.Stats()
		resp.Poller = &ps
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	if s.poller == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no feed poller running")
		return
	}
	s.poller.Trigger()
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "poll requested"})
}
