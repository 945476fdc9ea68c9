package api

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flight.dashboard/internal/testutil"
)

func TestAttitudeChart(t *testing.T) {
	s, e, _ := newTestServer(t, 0)
	e.Apply(samples(20))

	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/charts/attitude"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "echarts")
	assert.Contains(t, body, "samples 9 to 20 of 20")
	assert.Contains(t, body, "05-08-2022, 8:00:19 am")
}

func TestAttitudePlot(t *testing.T) {
	s, e, _ := newTestServer(t, 0)
	e.Apply(samples(5))

	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/charts/attitude.png?width=4&height=2"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 384, cfg.Width)
	assert.Equal(t, 192, cfg.Height)
}

func TestAttitudePlot_EmptyHistory(t *testing.T) {
	s, _, _ := newTestServer(t, 0)

	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/charts/attitude.png"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	_, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
}

func TestAttitudePlot_BadSize(t *testing.T) {
	s, _, _ := newTestServer(t, 0)

	for _, q := range []string{"width=abc", "width=0.5", "height=41"} {
		t.Run(q, func(t *testing.T) {
			rec := testutil.NewTestRecorder()
			s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/charts/attitude.png?"+q))
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}
}
