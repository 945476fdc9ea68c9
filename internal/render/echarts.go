package render

import (
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/flight.dashboard/internal/telemetry"
)

// LineChartOptions controls the HTML chart page.
type LineChartOptions struct {
	Title    string
	Subtitle string
	// AssetsHost overrides where the ECharts scripts load from. Empty uses
	// the go-echarts default.
	AssetsHost string
	Width      string
	Height     string
}

func (o LineChartOptions) withDefaults() LineChartOptions {
	if o.Title == "" {
		o.Title = "Attitude"
	}
	if o.Width == "" {
		o.Width = "100%"
	}
	if o.Height == "" {
		o.Height = "480px"
	}
	return o
}

// AttitudeLineChart writes an ECharts page plotting yaw, pitch, and roll
// against the chart labels.
func AttitudeLineChart(w io.Writer, data telemetry.ChartData, o LineChartOptions) error {
	o = o.withDefaults()

	initOpts := opts.Initialization{PageTitle: o.Title, Width: o.Width, Height: o.Height}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	yAxis := opts.YAxis{Name: "rad", NameLocation: "middle", NameGap: 40}
	if lo, hi, ok := valueRange(data); ok {
		yAxis.Min = roundTo(lo, 3)
		yAxis.Max = roundTo(hi, 3)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(yAxis),
	)

	line.SetXAxis(data.Labels)
	for _, s := range telemetry.SeriesStyles {
		values := data.Values(s.Key)
		points := make([]opts.LineData, len(values))
		for i, v := range values {
			points[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.Label, points,
			charts.WithLineStyleOpts(opts.LineStyle{Color: s.Color}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: s.Fill}),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)
	}

	return line.Render(w)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
