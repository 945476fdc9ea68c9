// Package render draws the attitude chart for the presentation layer: an
// interactive ECharts page and a static PNG.
package render

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/flight.dashboard/internal/telemetry"
)

// valueRange returns the extent of every series in data, padded by a tenth
// of the span on each side. ok is false when data has no points.
func valueRange(data telemetry.ChartData) (lo, hi float64, ok bool) {
	all := make([]float64, 0, 3*data.Len())
	for _, s := range telemetry.SeriesStyles {
		all = append(all, data.Values(s.Key)...)
	}
	if len(all) == 0 {
		return 0, 0, false
	}

	lo, hi = floats.Min(all), floats.Max(all)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	pad := span / 10
	return lo - pad, hi + pad, true
}

// parseRGB parses a CSS "rgb(r, g, b)" colour.
func parseRGB(s string) (color.RGBA, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "rgb(%d, %d, %d)", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("parse colour %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
