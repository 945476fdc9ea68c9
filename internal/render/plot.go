package render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flight.dashboard/internal/telemetry"
)

// Default PNG size.
const (
	DefaultPlotWidth  = 10 * vg.Inch
	DefaultPlotHeight = 4 * vg.Inch
)

// AttitudePlotPNG writes a PNG line plot of the three attitude series. The
// x axis is the sample position, ticked with the chart labels.
func AttitudePlotPNG(w io.Writer, data telemetry.ChartData, width, height vg.Length) error {
	if width <= 0 {
		width = DefaultPlotWidth
	}
	if height <= 0 {
		height = DefaultPlotHeight
	}

	p := plot.New()
	p.Title.Text = "Attitude"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Angle (rad)"

	if lo, hi, ok := valueRange(data); ok {
		p.Y.Min, p.Y.Max = lo, hi
		p.NominalX(data.Labels...)
	} else {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = -1, 1
	}

	for _, s := range telemetry.SeriesStyles {
		values := data.Values(s.Key)
		if len(values) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(values))
		for i, v := range values {
			pts[i] = plotter.XY{X: float64(i), Y: v}
		}

		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s series: %w", s.Label, err)
		}
		c, err := parseRGB(s.Color)
		if err != nil {
			return err
		}
		l.Color = c
		l.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(s.Label, l)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
