package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("fetched %d records", 3)

	if len(got) != 1 || got[0] != "fetched 3 records" {
		t.Fatalf("got %q, want one line %q", got, "fetched 3 records")
	}

	// nil installs a no-op; the previous logger must no longer be called
	SetLogger(nil)
	Logf("dropped")
	if len(got) != 1 {
		t.Errorf("no-op logger still forwarded lines: %q", got)
	}
}

func TestTagged(t *testing.T) {
	defer SetLogger(nil)

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	logp := Tagged("poller")
	logp("cycle %d failed", 7)

	if len(got) != 1 || got[0] != "[poller] cycle 7 failed" {
		t.Fatalf("got %q", got)
	}
}

func TestTagged_FollowsLoggerSwap(t *testing.T) {
	defer SetLogger(nil)

	logp := Tagged("engine")

	var first, second int
	SetLogger(func(string, ...interface{}) { first++ })
	logp("one")
	SetLogger(func(string, ...interface{}) { second++ })
	logp("two")

	if first != 1 || second != 1 {
		t.Errorf("first=%d second=%d, want 1 and 1", first, second)
	}
}
