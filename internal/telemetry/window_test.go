package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowPolicy_Select(t *testing.T) {
	p := DefaultWindowPolicy()

	tests := []struct {
		n    int
		want Window
	}{
		{0, Window{}},
		{1, Window{0, 1}},
		{5, Window{0, 5}},
		{11, Window{0, 11}},
		{12, Window{0, 12}},
		{13, Window{2, 13}},
		{14, Window{3, 14}},
		{100, Window{89, 100}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Select(tt.n), "n=%d", tt.n)
	}
}

func TestWindowPolicy_Properties(t *testing.T) {
	p := DefaultWindowPolicy()

	for n := 0; n <= 200; n++ {
		w := p.Select(n)
		assert.Equal(t, n, w.End, "window always ends at the newest sample (n=%d)", n)
		assert.GreaterOrEqual(t, w.Start, 0)
		if n < DefaultSwitchThreshold {
			assert.Equal(t, n, w.Len(), "whole history below threshold (n=%d)", n)
		} else {
			assert.Equal(t, DefaultWindowSize, w.Len(), "trailing window at threshold (n=%d)", n)
		}
	}
}

func TestWindowPolicy_ThresholdBelowSize(t *testing.T) {
	p := WindowPolicy{Size: 10, Threshold: 3}

	assert.Equal(t, Window{0, 2}, p.Select(2))
	assert.Equal(t, Window{0, 5}, p.Select(5), "start clamps at zero")
	assert.Equal(t, Window{2, 12}, p.Select(12))
}

// Five samples appended one by one are all charted.
func TestWindow_FiveSamplesShownWhole(t *testing.T) {
	s := NewStore()
	p := DefaultWindowPolicy()
	for _, sample := range makeSamples(5) {
		s.Append(sample)
	}

	chart := BuildChart(s.Slice(p.Select(s.Len())), nil)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, chart.Series.Yaw)
}

// Fourteen samples leave samples 4..14 in the window.
func TestWindow_FourteenSamplesTrailingEleven(t *testing.T) {
	s := NewStore()
	p := DefaultWindowPolicy()
	for _, sample := range makeSamples(14) {
		s.Append(sample)
	}

	got := s.Slice(p.Select(s.Len()))
	assert.Len(t, got, 11)
	assert.Equal(t, []float64{4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, yaws(got))
}

// The window must track the length after each append, never lag a cycle.
func TestWindow_RecomputedPerAppend(t *testing.T) {
	s := NewStore()
	p := DefaultWindowPolicy()
	for i, sample := range makeSamples(20) {
		s.Append(sample)
		w := s.Slice(p.Select(s.Len()))
		last := w[len(w)-1]
		assert.Equal(t, float64(i+1), last.Yaw, "newest sample visible after append %d", i+1)
	}
}
