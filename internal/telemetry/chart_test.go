package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChart(t *testing.T) {
	window := makeSamples(3)

	c := BuildChart(window, time.UTC)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{
		"05-08-2022, 8:00:00 am",
		"05-08-2022, 8:00:01 am",
		"05-08-2022, 8:00:02 am",
	}, c.Labels)
	assert.Equal(t, []float64{1, 2, 3}, c.Series.Yaw)
	assert.Equal(t, []float64{0, 0.1, 0.2}, c.Series.Pitch)
	assert.Equal(t, []float64{0, -0.1, -0.2}, c.Series.Roll)
}

func TestBuildChart_LabelLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	window := []Sample{{Timestamp: time.Date(2022, 8, 5, 8, 30, 15, 0, time.UTC)}}

	c := BuildChart(window, wib)
	assert.Equal(t, []string{"05-08-2022, 3:30:15 pm"}, c.Labels)
}

func TestBuildChart_EmptyEncodesArrays(t *testing.T) {
	c := BuildChart(nil, time.UTC)

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"labels":[],"series":{"yaw":[],"pitch":[],"roll":[]}}`, string(b))
}

func TestChartData_Values(t *testing.T) {
	c := BuildChart(makeSamples(2), time.UTC)

	for _, style := range SeriesStyles {
		assert.Len(t, c.Values(style.Key), 2, style.Key)
	}
	assert.Nil(t, c.Values("altitude"))
}

func TestProject(t *testing.T) {
	fallback := LatLng{Lat: -6.365232, Lng: 106.824506}

	empty := Project(nil, fallback)
	assert.Equal(t, Projection{MapCenter: fallback}, empty)

	s := makeSamples(1)[0]
	got := Project(&s, fallback)
	assert.True(t, got.HasSample)
	assert.Equal(t, Orientation{Yaw: 1, Pitch: 0, Roll: 0}, got.Orientation)
	assert.Equal(t, 100.0, got.AltitudeDisplay)
	assert.Equal(t, LatLng{Lat: -6.3, Lng: 106.8}, got.MapCenter)
}
