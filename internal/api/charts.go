package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flight.dashboard/internal/httputil"
	"github.com/banshee-data/flight.dashboard/internal/render"
)

// Bounds on the PNG size, in inches.
const (
	minPlotInches = 1.0
	maxPlotInches = 40.0
)

// attitudeChart serves an ECharts page of the current window.
func (s *Server) attitudeChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	st := s.eng.State()
	o := render.LineChartOptions{
		Title:    "Attitude",
		Subtitle: fmt.Sprintf("samples %d to %d of %d", st.Window.Start, st.Window.End, st.HistoryLength),
	}

	var buf bytes.Buffer
	if err := render.AttitudeLineChart(&buf, st.Chart(), o); err != nil {
		s.logf("render attitude chart: %v", err)
		httputil.WriteJSONError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

// attitudePlot serves a PNG plot of the current window. Optional width and
// height query parameters give the size in inches.
func (s *Server) attitudePlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	width, err := plotInches(r, "width", render.DefaultPlotWidth)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	height, err := plotInches(r, "height", render.DefaultPlotHeight)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := render.AttitudePlotPNG(&buf, s.eng.State().Chart(), width, height); err != nil {
		s.logf("render attitude plot: %v", err)
		httputil.WriteJSONError(w, http.StatusInternalServerError, "failed to render plot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

func plotInches(r *http.Request, name string, def vg.Length) (vg.Length, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < minPlotInches || v > maxPlotInches {
		return 0, fmt.Errorf("%s must be a number of inches between %g and %g", name, minPlotInches, maxPlotInches)
	}
	return vg.Length(v) * vg.Inch, nil
}
