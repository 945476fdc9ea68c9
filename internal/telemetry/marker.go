package telemetry

import (
	"encoding/json"
	"fmt"
)

// Marker kinds as they appear in JSON.
const (
	MarkerKindDrone    = "drone"
	MarkerKindWaypoint = "waypoint"
)

// Marker is one pin on the map: the drone itself or a captured waypoint.
// The set of implementations is closed.
type Marker interface {
	Kind() string
	Position() LatLng
	Label() string
	marker()
}

// DroneMarker pins the drone's current map centre.
type DroneMarker struct {
	At LatLng
}

func (DroneMarker) Kind() string       { return MarkerKindDrone }
func (m DroneMarker) Position() LatLng { return m.At }
func (DroneMarker) Label() string      { return "Drone" }
func (DroneMarker) marker()            {}

// MarshalJSON encodes the marker with its kind and label.
func (m DroneMarker) MarshalJSON() ([]byte, error) {
	return marshalMarker(m, 0)
}

// WaypointMarker pins one captured waypoint. Index is zero-based; the label
// is one-based.
type WaypointMarker struct {
	At    LatLng
	Index int
}

func (WaypointMarker) Kind() string       { return MarkerKindWaypoint }
func (m WaypointMarker) Position() LatLng { return m.At }
func (m WaypointMarker) Label() string    { return fmt.Sprintf("Waypoint %d", m.Index+1) }
func (WaypointMarker) marker()            {}

// MarshalJSON encodes the marker with its kind, label, and index.
func (m WaypointMarker) MarshalJSON() ([]byte, error) {
	return marshalMarker(m, m.Index)
}

type markerJSON struct {
	Kind  string  `json:"kind"`
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Index *int    `json:"index,omitempty"`
}

func marshalMarker(m Marker, index int) ([]byte, error) {
	p := m.Position()
	out := markerJSON{Kind: m.Kind(), Label: m.Label(), Lat: p.Lat, Lng: p.Lng}
	if m.Kind() == MarkerKindWaypoint {
		out.Index = &index
	}
	return json.Marshal(out)
}

// Markers returns the drone marker at center followed by one marker per
// waypoint, in capture order.
func Markers(center LatLng, waypoints []Waypoint) []Marker {
	out := make([]Marker, 0, len(waypoints)+1)
	out = append(out, DroneMarker{At: center})
	for i, wp := range waypoints {
		out = append(out, WaypointMarker{At: wp, Index: i})
	}
	return out
}
