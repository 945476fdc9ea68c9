package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_NowAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", clock.Now(), start)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", clock.Now(), later)
	}
}

func TestMockClock_TickerFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case got := <-ticker.C():
		if !got.Equal(start.Add(time.Second)) {
			t.Errorf("tick time = %v, want %v", got, start.Add(time.Second))
		}
	default:
		t.Fatal("ticker did not fire after its interval")
	}
}

func TestMockClock_TickerBuffersOneTick(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Second)

	// three intervals pass with nobody receiving
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
	}

	<-ticker.C()
	select {
	case <-ticker.C():
		t.Error("expected only one buffered tick")
	default:
	}
}

func TestMockTicker_Stop(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()

	clock.Advance(2 * time.Second)
	select {
	case <-ticker.C():
		t.Error("stopped ticker fired")
	default:
	}

	mt := clock.Tickers()[0]
	if !mt.Stopped() {
		t.Error("Stopped() = false after Stop")
	}
}

func TestMockTicker_Trigger(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Minute)
	mt := clock.Tickers()[0]

	at := time.Unix(42, 0)
	mt.Trigger(at)
	mt.Trigger(at.Add(time.Second)) // dropped, one already pending

	if got := <-ticker.C(); !got.Equal(at) {
		t.Errorf("Trigger delivered %v, want %v", got, at)
	}
}

func TestMockTicker_Reset(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(time.Second)
	ticker.Stop()
	ticker.Reset(2 * time.Second)

	mt := clock.Tickers()[0]
	if mt.Stopped() {
		t.Error("Reset should restart a stopped ticker")
	}
	if mt.Interval() != 2*time.Second {
		t.Errorf("Interval() = %v, want 2s", mt.Interval())
	}

	clock.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired at the old interval")
	default:
	}
	clock.Advance(time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire at the new interval")
	}
}
