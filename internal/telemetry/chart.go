package telemetry

import "time"

// LabelLayout formats chart labels as day-month-year with a 12-hour clock and
// lowercase meridiem, e.g. "05-08-2022, 3:04:05 pm".
const LabelLayout = "02-01-2006, 3:04:05 pm"

// Series keys, in chart order.
const (
	SeriesYaw   = "yaw"
	SeriesPitch = "pitch"
	SeriesRoll  = "roll"
)

// SeriesStyle is the display metadata for one attitude series.
type SeriesStyle struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
	Fill  string `json:"fill"`
}

// SeriesStyles lists the three attitude series in chart order.
var SeriesStyles = []SeriesStyle{
	{Key: SeriesYaw, Label: "Yaw", Color: "rgb(205, 130, 158)", Fill: "rgba(225, 204, 230, .3)"},
	{Key: SeriesPitch, Label: "Pitch", Color: "rgb(35, 26, 136)", Fill: "rgba(184, 185, 210, .3)"},
	{Key: SeriesRoll, Label: "Roll", Color: "rgb(44, 136, 26)", Fill: "rgba(188, 210, 184, .3)"},
}

// Series holds one positional value array per attitude angle.
type Series struct {
	Yaw   []float64 `json:"yaw"`
	Pitch []float64 `json:"pitch"`
	Roll  []float64 `json:"roll"`
}

// ChartData is the labelled multi-series chart input for one window.
// Labels and every series always have the window's length.
type ChartData struct {
	Labels []string `json:"labels"`
	Series Series   `json:"series"`
}

// Len returns the number of points in the chart.
func (c ChartData) Len() int {
	return len(c.Labels)
}

// Values returns the series for key, or nil for an unknown key.
func (c ChartData) Values(key string) []float64 {
	switch key {
	case SeriesYaw:
		return c.Series.Yaw
	case SeriesPitch:
		return c.Series.Pitch
	case SeriesRoll:
		return c.Series.Roll
	}
	return nil
}

// BuildChart projects window into chart labels and series, preserving order.
// Labels are formatted in loc; a nil loc means time.Local. The result never
// contains nil slices, so an empty window encodes as empty JSON arrays.
func BuildChart(window []Sample, loc *time.Location) ChartData {
	if loc == nil {
		loc = time.Local
	}

	n := len(window)
	c := ChartData{
		Labels: make([]string, n),
		Series: Series{
			Yaw:   make([]float64, n),
			Pitch: make([]float64, n),
			Roll:  make([]float64, n),
		},
	}
	for i, s := range window {
		c.Labels[i] = s.Timestamp.In(loc).Format(LabelLayout)
		c.Series.Yaw[i] = s.Yaw
		c.Series.Pitch[i] = s.Pitch
		c.Series.Roll[i] = s.Roll
	}
	return c
}
