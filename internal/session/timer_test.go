package session

import (
	"testing"
	"time"
)

func TestWarningThreshold(t *testing.T) {
	cases := []struct {
		total, want int
	}{
		{100, 20},
		{200, 40},
		{90, 18},
		{33, 7},
		{1, 1},
	}
	for _, tc := range cases {
		if got := WarningThreshold(tc.total); got != tc.want {
			t.Fatalf("WarningThreshold(%d) = %d, want %d", tc.total, got, tc.want)
		}
	}
}

func TestWarningFiresExactlyOnce(t *testing.T) {
	clock := newManualClock(time.Unix(0, 0))
	ticks := make(chan int, 256)
	warnings := make(chan int, 8)

	timer := NewTimerEngine(clock, TimerCallbacks{
		OnTick:    func(remaining int) { ticks <- remaining },
		OnWarning: func(remaining int) { warnings <- remaining },
	})
	timer.Start(100, 100, false)

	for i := 0; i < 79; i++ {
		clock.Tick()
		if got := waitInt(t, ticks, "tick"); got != 100-i-1 {
			t.Fatalf("tick %d: remaining %d", i, got)
		}
	}
	expectNone(t, warnings, "early warning")

	// 80th tick crosses remaining=20, exactly 20% of 100.
	clock.Tick()
	waitInt(t, ticks, "tick")
	if got := waitInt(t, warnings, "warning"); got != 20 {
		t.Fatalf("warning at remaining %d, want 20", got)
	}

	for i := 0; i < 10; i++ {
		clock.Tick()
		waitInt(t, ticks, "tick")
	}
	expectNone(t, warnings, "second warning")
}

func TestExpiryHaltsTicking(t *testing.T) {
	clock := newManualClock(time.Unix(0, 0))
	ticks := make(chan int, 16)
	expired := make(chan int, 2)

	timer := NewTimerEngine(clock, TimerCallbacks{
		OnTick:    func(remaining int) { ticks <- remaining },
		OnExpired: func() { expired <- 1 },
	})
	timer.Start(3, 3, false)

	for i := 0; i < 3; i++ {
		clock.Tick()
		waitInt(t, ticks, "tick")
	}
	waitInt(t, expired, "expired")
	if got := timer.Remaining(); got != 0 {
		t.Fatalf("remaining after expiry = %d", got)
	}

	// The run loop has halted; a stray tick must produce no signals.
	clock.tickCh <- clock.Now()
	expectNone(t, ticks, "tick after expiry")
	expectNone(t, expired, "second expiry")
}

func TestStopSilencesTimer(t *testing.T) {
	clock := newManualClock(time.Unix(0, 0))
	ticks := make(chan int, 16)

	timer := NewTimerEngine(clock, TimerCallbacks{
		OnTick: func(remaining int) { ticks <- remaining },
	})
	timer.Start(60, 60, false)

	clock.Tick()
	if got := waitInt(t, ticks, "tick"); got != 59 {
		t.Fatalf("remaining = %d, want 59", got)
	}

	timer.Stop()
	timer.Stop() // idempotent

	clock.tickCh <- clock.Now()
	expectNone(t, ticks, "tick after stop")
	if got := timer.Remaining(); got != 59 {
		t.Fatalf("remaining after stop = %d, want 59", got)
	}
}

func TestResumedTimerSkipsPreFiredWarning(t *testing.T) {
	clock := newManualClock(time.Unix(0, 0))
	warnings := make(chan int, 4)
	ticks := make(chan int, 64)

	timer := NewTimerEngine(clock, TimerCallbacks{
		OnTick:    func(remaining int) { ticks <- remaining },
		OnWarning: func(remaining int) { warnings <- remaining },
	})
	// Resumed with 15s left of 100s: already inside the warning zone.
	timer.Start(100, 15, true)

	for i := 0; i < 5; i++ {
		clock.Tick()
		waitInt(t, ticks, "tick")
	}
	expectNone(t, warnings, "re-fired warning")
}
