// Package feedsim serves a synthetic drone feed for development. It answers
// GET with the full cumulative history, growing by one record per interval,
// in the same shape as the production feed.
package feedsim

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/banshee-data/flight.dashboard/internal/httputil"
	"github.com/banshee-data/flight.dashboard/internal/telemetry"
	"github.com/banshee-data/flight.dashboard/internal/timeutil"
)

// TimestampLayout matches the production feed's insertedAt values.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Defaults for Options.
const (
	DefaultInterval   = time.Second
	DefaultMaxRecords = 600
)

// Options configures a Simulator.
type Options struct {
	Clock    timeutil.Clock
	Interval time.Duration
	Center   telemetry.LatLng
	// MaxRecords caps the history; once reached the feed stops growing.
	MaxRecords int
	// FaultEvery, when positive, makes every FaultEvery-th record carry a
	// non-numeric yaw so the validator's rejection path is exercised.
	FaultEvery int
}

// Simulator is an http.Handler serving the synthetic feed.
type Simulator struct {
	clock      timeutil.Clock
	start      time.Time
	interval   time.Duration
	center     telemetry.LatLng
	maxRecords int
	faultEvery int
}

// New returns a simulator whose first record is stamped at the clock's
// current time.
func New(opts Options) *Simulator {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	return &Simulator{
		clock:      opts.Clock,
		start:      opts.Clock.Now(),
		interval:   opts.Interval,
		center:     opts.Center,
		maxRecords: opts.MaxRecords,
		faultEvery: opts.FaultEvery,
	}
}

type record struct {
	Yaw        any     `json:"yaw"`
	Pitch      float64 `json:"pitch"`
	Roll       float64 `json:"roll"`
	Alt        float64 `json:"alt"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	InsertedAt string  `json:"insertedAt"`
}

// Count returns the number of records currently in the history.
func (s *Simulator) Count() int {
	elapsed := s.clock.Now().Sub(s.start)
	if elapsed < 0 {
		return 0
	}
	n := int(elapsed/s.interval) + 1
	if n > s.maxRecords {
		n = s.maxRecords
	}
	return n
}

// record returns the i-th record. Values depend only on i.
func (s *Simulator) record(i int) record {
	t := float64(i) * s.interval.Seconds()
	r := record{
		Yaw:        math.Mod(t*0.5, 2*math.Pi),
		Pitch:      0.26 * math.Cos(t*0.7),
		Roll:       0.35 * math.Sin(t),
		Alt:        100 + 5*math.Sin(t/10),
		Lat:        s.center.Lat + 0.001*math.Sin(t/30),
		Lng:        s.center.Lng + 0.001*math.Cos(t/30),
		InsertedAt: s.start.Add(time.Duration(i) * s.interval).UTC().Format(TimestampLayout),
	}
	if s.faultEvery > 0 && (i+1)%s.faultEvery == 0 {
		r.Yaw = "NaN"
	}
	return r
}

// ServeHTTP writes the cumulative history as a JSON array.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	n := s.Count()
	out := make([]record, n)
	for i := range out {
		out[i] = s.record(i)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, "Failed to encode feed", http.StatusInternalServerError)
	}
}
