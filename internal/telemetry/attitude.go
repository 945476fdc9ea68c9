package telemetry

// Projection is the display-ready view of the most recent sample: the
// orientation for the 3D indicator, the altitude card value, and the map
// centre.
type Projection struct {
	Orientation     Orientation `json:"orientation"`
	AltitudeDisplay float64     `json:"altitudeDisplay"`
	MapCenter       LatLng      `json:"mapCenter"`
	// HasSample is false when the projection was built from an empty
	// history and carries the fallback values.
	HasSample bool `json:"hasSample"`
}

// Project maps the latest sample to its projection. A nil latest yields a
// zero orientation, zero altitude, and the fallback centre; Project never
// fails.
func Project(latest *Sample, fallback LatLng) Projection {
	if latest == nil {
		return Projection{MapCenter: fallback}
	}
	return Projection{
		Orientation:     latest.Orientation(),
		AltitudeDisplay: latest.Altitude,
		MapCenter:       latest.Position(),
		HasSample:       true,
	}
}
