package engine

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes registers engine status on the tsweb debug index plus a
// telemetry page and a silent history dump.
func (e *Engine) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Telemetry session", func() any {
		st := e.Stats()
		return st.Session + " (started " + humanize.Time(st.Started) + ")"
	})
	debug.KVFunc("Telemetry history", func() any {
		st := e.Stats()
		return humanize.Comma(int64(st.HistoryLength)) + " samples, version " + humanize.Comma(int64(st.Version))
	})
	debug.KVFunc("Telemetry updated", func() any {
		st := e.Stats()
		if st.Applies == 0 {
			return "never"
		}
		return humanize.Time(st.UpdatedAt)
	})

	debug.HandleFunc("telemetry", "Telemetry engine status", func(w http.ResponseWriter, r *http.Request) {
		writeIndentedJSON(w, struct {
			Stats Stats              `json:"stats"`
			State DerivedVisualState `json:"state"`
		}{e.Stats(), e.State()})
	})

	debug.HandleSilentFunc("telemetry-history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeIndentedJSON(w, e.History())
	})
}

func writeIndentedJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, "Failed to encode", http.StatusInternalServerError)
	}
}
