package telemetry

import (
	"errors"
	"fmt"
)

// ErrNegativeTarget is returned when a negative waypoint target count is set.
var ErrNegativeTarget = errors.New("target count must be non-negative")

// Waypoint is an operator-designated map coordinate.
type Waypoint = LatLng

// WaypointCapture collects operator map clicks up to a target count. The
// count can change at any time; lowering it below the number already
// captured keeps the existing points and only gates future clicks.
type WaypointCapture struct {
	points []Waypoint
	target int
}

// NewWaypointCapture returns an empty capture with the given target count.
func NewWaypointCapture(target int) (*WaypointCapture, error) {
	c := &WaypointCapture{}
	if err := c.SetTargetCount(target); err != nil {
		return nil, err
	}
	return c, nil
}

// OnMapClick records p if fewer than TargetCount points are held and reports
// whether it was kept. A click at capacity is ignored, not an error.
func (c *WaypointCapture) OnMapClick(p Waypoint) bool {
	if len(c.points) >= c.target {
		return false
	}
	c.points = append(c.points, p)
	return true
}

// SetTargetCount updates the cap. Existing points are never dropped.
func (c *WaypointCapture) SetTargetCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeTarget, n)
	}
	c.target = n
	return nil
}

// TargetCount returns the current cap.
func (c *WaypointCapture) TargetCount() int {
	return c.target
}

// Len returns the number of captured points.
func (c *WaypointCapture) Len() int {
	return len(c.points)
}

// Waypoints returns a copy of the captured points in click order.
func (c *WaypointCapture) Waypoints() []Waypoint {
	return append(make([]Waypoint, 0, len(c.points)), c.points...)
}

// Clear drops every captured point, keeping the target count.
func (c *WaypointCapture) Clear() {
	c.points = nil
}
