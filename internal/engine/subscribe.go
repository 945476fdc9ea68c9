package engine

import "github.com/google/uuid"

// Update kinds.
const (
	UpdateState     = "state"
	UpdateWaypoints = "waypoints"
)

// Update is one change notification. Kind names what changed; State and
// Waypoints always carry the full current values. When an undelivered update
// of another kind is replaced, its kind is kept in Merged so readers still
// know both parts changed.
type Update struct {
	Kind      string             `json:"kind"`
	State     DerivedVisualState `json:"state"`
	Waypoints WaypointState      `json:"waypoints"`
	Merged    []string           `json:"merged,omitempty"`
}

// Includes reports whether u carries a change of the given kind, either its
// own or one merged from a replaced update.
func (u Update) Includes(kind string) bool {
	if u.Kind == kind {
		return true
	}
	for _, k := range u.Merged {
		if k == kind {
			return true
		}
	}
	return false
}

// merge folds the kinds of a replaced update into u.
func (u Update) merge(old Update) Update {
	for _, k := range append([]string{old.Kind}, old.Merged...) {
		if !u.Includes(k) {
			u.Merged = append(u.Merged, k)
		}
	}
	return u
}

// Subscribe registers a new listener. The returned channel holds at most one
// pending update; a slow reader misses intermediate updates but always
// receives the newest. The channel is closed by Unsubscribe or Close.
func (e *Engine) Subscribe() (string, <-chan Update) {
	id := uuid.NewString()
	ch := make(chan Update, 1)

	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()
	e.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (e *Engine) Unsubscribe(id string) {
	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()
	if ch, ok := e.subscribers[id]; ok {
		close(ch)
		delete(e.subscribers, id)
	}
}

// Close unsubscribes every listener.
func (e *Engine) Close() {
	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()
	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}
}

// publishLocked delivers the current state to every subscriber without
// blocking. Callers hold e.mu for writing, which keeps deliveries in order.
func (e *Engine) publishLocked(kind string) {
	u := Update{
		Kind:      kind,
		State:     e.state,
		Waypoints: e.waypointStateLocked(),
	}

	e.subscriberMu.Lock()
	defer e.subscriberMu.Unlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- u:
			continue
		default:
		}
		// Replace the stale pending update with the newer one.
		next := u
		select {
		case old := <-ch:
			next = u.merge(old)
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}
