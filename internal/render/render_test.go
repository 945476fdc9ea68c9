package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flight.dashboard/internal/telemetry"
)

func chartData(n int) telemetry.ChartData {
	window := make([]telemetry.Sample, n)
	start := time.Date(2022, 8, 5, 8, 0, 0, 0, time.UTC)
	for i := range window {
		window[i] = telemetry.Sample{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Yaw:       float64(i),
			Pitch:     -float64(i),
			Roll:      0.5,
		}
	}
	return telemetry.BuildChart(window, time.UTC)
}

func TestValueRange(t *testing.T) {
	lo, hi, ok := valueRange(chartData(5))
	require.True(t, ok)
	assert.InDelta(t, -4.8, lo, 1e-9)
	assert.InDelta(t, 4.8, hi, 1e-9)

	_, _, ok = valueRange(chartData(0))
	assert.False(t, ok)
}

func TestValueRange_FlatSeries(t *testing.T) {
	data := telemetry.ChartData{
		Labels: []string{"a"},
		Series: telemetry.Series{Yaw: []float64{2}, Pitch: []float64{2}, Roll: []float64{2}},
	}
	lo, hi, ok := valueRange(data)
	require.True(t, ok)
	assert.InDelta(t, 1.9, lo, 1e-9)
	assert.InDelta(t, 2.1, hi, 1e-9)
}

func TestParseRGB(t *testing.T) {
	for _, s := range telemetry.SeriesStyles {
		_, err := parseRGB(s.Color)
		assert.NoError(t, err, s.Key)
	}

	c, err := parseRGB("rgb(205, 130, 158)")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 205, G: 130, B: 158, A: 255}, c)

	_, err = parseRGB("#cd829e")
	assert.Error(t, err)
}

func TestAttitudeLineChart(t *testing.T) {
	var buf bytes.Buffer
	err := AttitudeLineChart(&buf, chartData(3), LineChartOptions{Subtitle: "3 samples"})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Attitude")
	assert.Contains(t, html, "3 samples")
	for _, s := range telemetry.SeriesStyles {
		assert.Contains(t, html, s.Label)
		assert.Contains(t, html, s.Color)
	}
	assert.Contains(t, html, "05-08-2022, 8:00:02 am")
}

func TestAttitudeLineChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, AttitudeLineChart(&buf, chartData(0), LineChartOptions{}))
	assert.Contains(t, buf.String(), "<html")
}

func TestAttitudePlotPNG(t *testing.T) {
	for _, n := range []int{0, 1, 11} {
		var buf bytes.Buffer
		require.NoError(t, AttitudePlotPNG(&buf, chartData(n), 4*vg.Inch, 2*vg.Inch), "n=%d", n)

		img, err := png.Decode(&buf)
		require.NoError(t, err, "n=%d", n)
		// 96 dpi
		assert.Equal(t, 384, img.Bounds().Dx())
		assert.Equal(t, 192, img.Bounds().Dy())
	}
}
