package poller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes registers poller status on the tsweb debug index, a
// status page, and a silent endpoint that requests an immediate cycle.
func (p *Poller) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Feed poller", func() any {
		st := p.Stats()
		if st.Stopped {
			return "stopped"
		}
		last := "never"
		if !st.LastSuccess.IsZero() {
			last = humanize.Time(st.LastSuccess)
		}
		return fmt.Sprintf("every %v, last success %s, %d consecutive failures",
			p.Interval(), last, st.ConsecutiveFailures)
	})

	debug.HandleFunc("poller", "Feed poller status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p.Stats()); err != nil {
			http.Error(w, "Failed to encode", http.StatusInternalServerError)
		}
	})

	debug.HandleSilentFunc("poll-now", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if p.Stopped() {
			http.Error(w, "Poller stopped", http.StatusConflict)
			return
		}
		p.Trigger()
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, "Poll requested")
	})
}
