package telemetry

// Default windowing parameters. The chart shows the whole history until it
// reaches DefaultSwitchThreshold samples and then the last DefaultWindowSize.
// The two differ on purpose: histories of 11 and 12 samples are shown whole.
const (
	DefaultWindowSize      = 11
	DefaultSwitchThreshold = 13
)

// Window is a half-open index range [Start, End) into the history.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples covered.
func (w Window) Len() int {
	return w.End - w.Start
}

// WindowPolicy selects the visible part of the history.
type WindowPolicy struct {
	// Size is the number of trailing samples shown once the history has
	// reached Threshold.
	Size int
	// Threshold is the history length at which the view switches from the
	// whole history to the trailing Size samples.
	Threshold int
}

// DefaultWindowPolicy returns the W=11, T=13 policy.
func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{Size: DefaultWindowSize, Threshold: DefaultSwitchThreshold}
}

// Select returns the visible window for a history of length n. It depends
// only on n, so callers must pass the length observed after the append that
// triggered the recompute.
func (p WindowPolicy) Select(n int) Window {
	if n <= 0 {
		return Window{}
	}
	if n < p.Threshold {
		return Window{Start: 0, End: n}
	}
	start := n - p.Size
	if start < 0 {
		start = 0
	}
	return Window{Start: start, End: n}
}
