// Package engine owns the dashboard's telemetry state. One Engine holds the
// sample history, the waypoint capture, and the most recently derived
// visual state, and serialises every mutation behind a single lock.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/flight.dashboard/internal/config"
	"github.com/banshee-data/flight.dashboard/internal/monitoring"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
	"github.com/banshee-data/flight.dashboard/internal/timeutil"
)

// DerivedVisualState is the output of one recompute. It is replaced
// wholesale on every apply; the slices it carries are never mutated after
// the state is published.
type DerivedVisualState struct {
	Orientation     telemetry.Orientation `json:"orientation"`
	AltitudeDisplay float64               `json:"altitudeDisplay"`
	MapCenter       telemetry.LatLng      `json:"mapCenter"`
	HasSample       bool                  `json:"hasSample"`
	ChartLabels     []string              `json:"chartLabels"`
	ChartSeries     telemetry.Series      `json:"chartSeries"`
	Window          telemetry.Window      `json:"window"`
	HistoryLength   int                   `json:"historyLength"`
	Version         uint64                `json:"version"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	Session         string                `json:"session"`
}

// Chart returns the state's chart labels and series as ChartData.
func (s DerivedVisualState) Chart() telemetry.ChartData {
	return telemetry.ChartData{Labels: s.ChartLabels, Series: s.ChartSeries}
}

// WaypointState is the operator waypoint list with its current cap.
type WaypointState struct {
	TargetCount int                  `json:"targetCount"`
	Waypoints   []telemetry.Waypoint `json:"waypoints"`
}

// ApplyResult reports what one Apply changed.
type ApplyResult struct {
	Appended      int    `json:"appended"`
	Replaced      bool   `json:"replaced"`
	HistoryLength int    `json:"historyLength"`
	Version       uint64 `json:"version"`
}

// Options configures a new Engine. Zero values fall back to the defaults.
type Options struct {
	Policy             telemetry.WindowPolicy
	Fallback           telemetry.LatLng
	Location           *time.Location
	InitialTargetCount int
	Clock              timeutil.Clock
	Logf               func(format string, args ...any)
}

// OptionsFromConfig builds engine options from the dashboard config.
func OptionsFromConfig(cfg *config.DashboardConfig) Options {
	lat, lng := cfg.GetFallbackCenter()
	return Options{
		Policy: telemetry.WindowPolicy{
			Size:      cfg.GetWindowSize(),
			Threshold: cfg.GetSwitchThreshold(),
		},
		Fallback:           telemetry.LatLng{Lat: lat, Lng: lng},
		Location:           cfg.GetLabelLocation(),
		InitialTargetCount: cfg.GetInitialTargetCount(),
	}
}

// Engine is the single owner of telemetry state. It is safe for concurrent
// use: writers (feed applies, clicks, target changes) are serialised and
// readers receive immutable values.
type Engine struct {
	policy   telemetry.WindowPolicy
	fallback telemetry.LatLng
	loc      *time.Location
	clock    timeutil.Clock
	logf     func(format string, args ...any)
	session  string
	started  time.Time

	mu       sync.RWMutex
	store    *telemetry.Store
	capture  *telemetry.WaypointCapture
	state    DerivedVisualState
	version  uint64
	applies  int
	replaces int

	subscriberMu sync.Mutex
	subscribers  map[string]chan Update
}

// New returns an engine with empty history and a derived state built from
// it, so State is meaningful before the first apply.
func New(opts Options) (*Engine, error) {
	if opts.Policy.Size <= 0 || opts.Policy.Threshold <= 0 {
		opts.Policy = telemetry.DefaultWindowPolicy()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logf == nil {
		opts.Logf = monitoring.Tagged("engine")
	}

	capture, err := telemetry.NewWaypointCapture(opts.InitialTargetCount)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		policy:      opts.Policy,
		fallback:    opts.Fallback,
		loc:         opts.Location,
		clock:       opts.Clock,
		logf:        opts.Logf,
		session:     uuid.NewString(),
		store:       telemetry.NewStore(),
		capture:     capture,
		subscribers: make(map[string]chan Update),
	}
	e.started = e.clock.Now()
	e.state = e.deriveLocked()
	return e, nil
}

// Apply reconciles the history with an authoritative feed snapshot and
// recomputes the derived state from the post-reconcile history. The whole
// recompute happens under the write lock, so no reader ever sees a window,
// projection, and chart taken from different history lengths.
func (e *Engine) Apply(snapshot []telemetry.Sample) ApplyResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.store.Len()
	rec := e.store.Reconcile(snapshot)
	if rec.Replaced {
		e.replaces++
		e.logf("feed history diverged from local history (%d samples); replaced with %d from feed", before, e.store.Len())
	}

	e.version++
	e.applies++
	e.state = e.deriveLocked()
	e.publishLocked(UpdateState)

	return ApplyResult{
		Appended:      rec.Appended,
		Replaced:      rec.Replaced,
		HistoryLength: e.store.Len(),
		Version:       e.version,
	}
}

// deriveLocked computes the derived state from the current history. The
// window is selected from the store's length as it is now.
func (e *Engine) deriveLocked() DerivedVisualState {
	w := e.policy.Select(e.store.Len())
	chart := telemetry.BuildChart(e.store.Slice(w), e.loc)

	var latest *telemetry.Sample
	if s, ok := e.store.Latest(); ok {
		latest = &s
	}
	p := telemetry.Project(latest, e.fallback)

	return DerivedVisualState{
		Orientation:     p.Orientation,
		AltitudeDisplay: p.AltitudeDisplay,
		MapCenter:       p.MapCenter,
		HasSample:       p.HasSample,
		ChartLabels:     chart.Labels,
		ChartSeries:     chart.Series,
		Window:          w,
		HistoryLength:   e.store.Len(),
		Version:         e.version,
		UpdatedAt:       e.clock.Now(),
		Session:         e.session,
	}
}

// State returns the last derived visual state.
func (e *Engine) State() DerivedVisualState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// History returns a read-only view of the full sample history.
func (e *Engine) History() []telemetry.Sample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Snapshot()
}

// Window returns a read-only view of the samples in the visible window.
func (e *Engine) Window() []telemetry.Sample {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Slice(e.state.Window)
}

// Session returns the id of this engine's session.
func (e *Engine) Session() string {
	return e.session
}

// Waypoints returns a copy of the captured waypoints.
func (e *Engine) Waypoints() []telemetry.Waypoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.capture.Waypoints()
}

// TargetCount returns the current waypoint cap.
func (e *Engine) TargetCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.capture.TargetCount()
}

// WaypointState returns the waypoints together with the cap.
func (e *Engine) WaypointState() WaypointState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.waypointStateLocked()
}

func (e *Engine) waypointStateLocked() WaypointState {
	return WaypointState{
		TargetCount: e.capture.TargetCount(),
		Waypoints:   e.capture.Waypoints(),
	}
}

// Markers returns the drone marker at the current map centre followed by
// one marker per waypoint.
func (e *Engine) Markers() []telemetry.Marker {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return telemetry.Markers(e.state.MapCenter, e.capture.Waypoints())
}

// OnMapClick offers p to the waypoint capture and reports whether it was
// kept. Clicks beyond the target count are ignored.
func (e *Engine) OnMapClick(p telemetry.LatLng) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.capture.OnMapClick(p) {
		return false
	}
	e.publishLocked(UpdateWaypoints)
	return true
}

// SetTargetCount changes the waypoint cap. Existing waypoints are kept even
// when n is below their number.
func (e *Engine) SetTargetCount(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.capture.SetTargetCount(n); err != nil {
		return err
	}
	e.publishLocked(UpdateWaypoints)
	return nil
}

// ClearWaypoints drops every captured waypoint.
func (e *Engine) ClearWaypoints() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.capture.Clear()
	e.publishLocked(UpdateWaypoints)
}

// Stats is a summary of engine activity for status pages.
type Stats struct {
	Session       string    `json:"session"`
	Started       time.Time `json:"started"`
	Applies       int       `json:"applies"`
	Replacements  int       `json:"replacements"`
	HistoryLength int       `json:"historyLength"`
	Version       uint64    `json:"version"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Waypoints     int       `json:"waypoints"`
	TargetCount   int       `json:"targetCount"`
	Subscribers   int       `json:"subscribers"`
}

// Stats returns activity counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	st := Stats{
		Session:       e.session,
		Started:       e.started,
		Applies:       e.applies,
		Replacements:  e.replaces,
		HistoryLength: e.store.Len(),
		Version:       e.version,
		UpdatedAt:     e.state.UpdatedAt,
		Waypoints:     e.capture.Len(),
		TargetCount:   e.capture.TargetCount(),
	}
	e.mu.RUnlock()

	e.subscriberMu.Lock()
	st.Subscribers = len(e.subscribers)
	e.subscriberMu.Unlock()
	return st
}
