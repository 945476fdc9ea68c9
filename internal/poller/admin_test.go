package poller

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/flight.dashboard/internal/testutil"
)

func TestAttachAdminRoutes(t *testing.T) {
	p := New(newGatedFeed(t), newEngine(t), Options{Logf: quiet})
	mux := http.NewServeMux()
	p.AttachAdminRoutes(mux)

	tests := []struct {
		name       string
		method     string
		path       string
		stop       bool
		wantStatus int
		wantBody   string
	}{
		{name: "index", method: http.MethodGet, path: "/debug/", wantStatus: http.StatusOK, wantBody: "Feed poller"},
		{name: "status", method: http.MethodGet, path: "/debug/poller", wantStatus: http.StatusOK, wantBody: `"consecutiveFailures": 0`},
		{name: "poll-now GET", method: http.MethodGet, path: "/debug/poll-now", wantStatus: http.StatusMethodNotAllowed},
		{name: "poll-now POST", method: http.MethodPost, path: "/debug/poll-now", wantStatus: http.StatusAccepted, wantBody: "Poll requested"},
		{name: "poll-now after stop", method: http.MethodPost, path: "/debug/poll-now", stop: true, wantStatus: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.stop {
				p.Stop()
			}
			rec := testutil.NewTestRecorder()
			mux.ServeHTTP(rec, testutil.LocalRequest(tt.method, tt.path, nil))

			testutil.AssertStatusCode(t, rec.Code, tt.wantStatus)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}

	assert.Len(t, p.trigger, 1, "poll-now queued a cycle")
}
