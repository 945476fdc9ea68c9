package engine

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flight.dashboard/internal/telemetry"
	"github.com/banshee-data/flight.dashboard/internal/testutil"
)

func TestSubscribe_ReceivesUpdates(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	e.Apply(samples(3))
	u := <-ch
	assert.Equal(t, UpdateState, u.Kind)
	assert.Equal(t, 3, u.State.HistoryLength)
	assert.Equal(t, uint64(1), u.State.Version)

	e.OnMapClick(telemetry.LatLng{Lat: 1, Lng: 1})
	u = <-ch
	assert.Equal(t, UpdateWaypoints, u.Kind)
	assert.Equal(t, 2, u.Waypoints.TargetCount)
	assert.Len(t, u.Waypoints.Waypoints, 1)
	assert.Equal(t, 3, u.State.HistoryLength, "waypoint updates carry the current state")
}

func TestSubscribe_LatestWins(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	for n := 1; n <= 5; n++ {
		e.Apply(samples(n))
	}

	u := <-ch
	assert.Equal(t, uint64(5), u.State.Version)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued update: version %d", extra.State.Version)
	default:
	}
}

func TestSubscribe_MergesKindsWhenCoalescing(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	e.Apply(samples(3))
	require.True(t, e.OnMapClick(telemetry.LatLng{Lat: 1, Lng: 1}))

	u := <-ch
	assert.Equal(t, UpdateWaypoints, u.Kind)
	assert.Equal(t, []string{UpdateState}, u.Merged)
	assert.True(t, u.Includes(UpdateState))
	assert.True(t, u.Includes(UpdateWaypoints))
	assert.Equal(t, uint64(1), u.State.Version)
	assert.Len(t, u.Waypoints.Waypoints, 1)

	// Merged kinds carry through further replacements without duplicates.
	e.Apply(samples(4))
	e.ClearWaypoints()
	e.Apply(samples(5))
	u = <-ch
	assert.Equal(t, UpdateState, u.Kind)
	assert.Equal(t, []string{UpdateWaypoints}, u.Merged)
	assert.Equal(t, uint64(3), u.State.Version)
	assert.Empty(t, u.Waypoints.Waypoints)

	// A delivered update does not leak into the next one.
	e.Apply(samples(6))
	u = <-ch
	assert.Empty(t, u.Merged)
	assert.False(t, u.Includes(UpdateWaypoints))
}

func TestSubscribe_IgnoredClickPublishesNothing(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	assert.False(t, e.OnMapClick(telemetry.LatLng{}))
	select {
	case u := <-ch:
		t.Fatalf("unexpected update %q", u.Kind)
	default:
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	id, ch := e.Subscribe()

	e.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok)

	// A second unsubscribe is a no-op.
	e.Unsubscribe(id)
	e.Apply(samples(1))
}

func TestClose_ClosesAll(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	_, a := e.Subscribe()
	_, b := e.Subscribe()

	e.Close()

	_, ok := <-a
	assert.False(t, ok)
	_, ok = <-b
	assert.False(t, ok)
	assert.Zero(t, e.Stats().Subscribers)
}

func TestAttachAdminRoutes(t *testing.T) {
	e, _ := newTestEngine(t, 0)
	e.Apply(samples(3))

	mux := http.NewServeMux()
	e.AttachAdminRoutes(mux)

	t.Run("index lists telemetry", func(t *testing.T) {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/", nil))

		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		assert.Contains(t, rec.Body.String(), "Telemetry history")
		assert.Contains(t, rec.Body.String(), "3 samples")
	})

	t.Run("status page", func(t *testing.T) {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/telemetry", nil))

		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		var got struct {
			Stats Stats              `json:"stats"`
			State DerivedVisualState `json:"state"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 3, got.Stats.HistoryLength)
		assert.Equal(t, []float64{1, 2, 3}, got.State.ChartSeries.Yaw)
	})

	t.Run("history dump", func(t *testing.T) {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodGet, "/debug/telemetry-history", nil))

		testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		var got []telemetry.Sample
		testutil.DecodeJSON(t, rec, &got)
		require.Len(t, got, 3)
		assert.Equal(t, 3.0, got[2].Yaw)
	})

	t.Run("history dump rejects POST", func(t *testing.T) {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.LocalRequest(http.MethodPost, "/debug/telemetry-history", strings.NewReader("")))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	})

	t.Run("remote access denied", func(t *testing.T) {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/debug/telemetry"))
		testutil.AssertStatusCode(t, rec.Code, http.StatusForbidden)
	})
}
