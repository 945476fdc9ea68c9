package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/flight.dashboard/internal/engine"
)

// keepAliveInterval spaces SSE comment pings on an idle stream.
const keepAliveInterval = 15 * time.Second

// streamEvents sends the current state and waypoints, then every engine
// update, as server-sent events named after the update kind.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, updates := s.eng.Subscribe()
	defer s.eng.Unsubscribe(id)

	// Subscribed before the snapshot, so no update can fall between them.
	if err := writeEvent(w, engine.UpdateState, s.eng.State()); err != nil {
		return
	}
	if err := writeEvent(w, engine.UpdateWaypoints, s.eng.WaypointState()); err != nil {
		return
	}
	flusher.Flush()

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeUpdate(w, u); err != nil {
				s.logf("event stream %s: %v", id, err)
				return
			}
			flusher.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// writeUpdate writes one event per kind carried by u, state first.
func writeUpdate(w http.ResponseWriter, u engine.Update) error {
	if u.Includes(engine.UpdateState) {
		if err := writeEvent(w, engine.UpdateState, u.State); err != nil {
			return err
		}
	}
	if u.Includes(engine.UpdateWaypoints) {
		return writeEvent(w, engine.UpdateWaypoints, u.Waypoints)
	}
	return nil
}
