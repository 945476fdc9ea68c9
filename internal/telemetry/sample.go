// Package telemetry holds the drone telemetry model and the pure pieces of
// the dashboard engine: sample validation, the append-only sample store,
// window selection, attitude projection, chart series, and waypoint capture.
//
// Nothing in this package is safe for concurrent mutation; the engine
// package owns the single lock that serialises writers.
package telemetry

import (
	"math"
	"time"
)

// Sample is one validated attitude/position reading. Samples are values and
// are never mutated after validation.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Yaw       float64   `json:"yaw"`
	Pitch     float64   `json:"pitch"`
	Roll      float64   `json:"roll"`
	Altitude  float64   `json:"altitude"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
}

// Orientation returns the sample's attitude angles.
func (s Sample) Orientation() Orientation {
	return Orientation{Yaw: s.Yaw, Pitch: s.Pitch, Roll: s.Roll}
}

// Position returns the sample's coordinate.
func (s Sample) Position() LatLng {
	return LatLng{Lat: s.Lat, Lng: s.Lng}
}

// Equal reports whether two samples carry the same reading. Timestamps are
// compared as instants, ignoring location and monotonic clock data.
func (s Sample) Equal(o Sample) bool {
	return s.Timestamp.Equal(o.Timestamp) &&
		s.Yaw == o.Yaw && s.Pitch == o.Pitch && s.Roll == o.Roll &&
		s.Altitude == o.Altitude && s.Lat == o.Lat && s.Lng == o.Lng
}

// Orientation is a yaw/pitch/roll triple, passed through in the feed's units
// (radians) for 3D rotation.
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is finite and within lat/lng bounds.
func (p LatLng) Valid() bool {
	return finite(p.Lat) && finite(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
