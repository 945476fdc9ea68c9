package telemetry

// Store is the ordered, append-only sample history for one session.
// Insertion order is arrival order. Store is not safe for concurrent use.
//
// Views returned by Snapshot and Slice are capped at their length, so later
// appends never become visible through them, and Reconcile allocates fresh
// backing storage whenever it has to rewrite history. Views are therefore
// immutable once handed out.
type Store struct {
	samples []Sample
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds one sample at the end of the history.
func (s *Store) Append(sample Sample) {
	s.samples = append(s.samples, sample)
}

// Len returns the number of samples held.
func (s *Store) Len() int {
	return len(s.samples)
}

// Latest returns the most recently appended sample.
func (s *Store) Latest() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Snapshot returns a read-only view of the whole history.
func (s *Store) Snapshot() []Sample {
	n := len(s.samples)
	return s.samples[:n:n]
}

// Slice returns a read-only view of the samples in w. w is clamped to the
// current history.
func (s *Store) Slice(w Window) []Sample {
	start, end := w.Start, w.End
	if end > len(s.samples) {
		end = len(s.samples)
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return s.samples[start:end:end]
}

// ReconcileResult describes how Reconcile brought the store in line with a
// feed snapshot.
type ReconcileResult struct {
	// Appended is the number of samples added at the tail.
	Appended int
	// Replaced is set when the snapshot did not extend the existing history
	// and the store was rewritten wholesale.
	Replaced bool
}

// Reconcile makes the history equal to snapshot, which the feed treats as
// the authoritative cumulative history. When snapshot extends the current
// history (identical prefix) only the new tail is appended. Otherwise the
// history is replaced.
func (s *Store) Reconcile(snapshot []Sample) ReconcileResult {
	if s.isPrefixOf(snapshot) {
		tail := snapshot[len(s.samples):]
		for _, sample := range tail {
			s.Append(sample)
		}
		return ReconcileResult{Appended: len(tail)}
	}

	s.samples = append(make([]Sample, 0, len(snapshot)), snapshot...)
	return ReconcileResult{Appended: len(snapshot), Replaced: true}
}

func (s *Store) isPrefixOf(snapshot []Sample) bool {
	if len(snapshot) < len(s.samples) {
		return false
	}
	for i := range s.samples {
		if !s.samples[i].Equal(snapshot[i]) {
			return false
		}
	}
	return true
}
