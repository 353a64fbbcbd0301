package session

import (
	"sync"
	"testing"
	"time"
)

// manualClock drives timers by hand so tests never sleep.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	tickCh chan time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start, tickCh: make(chan time.Time, 1)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	return manualTicker{clock: c}
}

// Tick advances one second and delivers it to the ticker channel.
func (c *manualClock) Tick() {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	now := c.now
	c.mu.Unlock()
	c.tickCh <- now
}

type manualTicker struct {
	clock *manualClock
}

func (t manualTicker) C() <-chan time.Time { return t.clock.tickCh }

func (t manualTicker) Stop() {}

func waitInt(t *testing.T, ch <-chan int, what string) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return 0
	}
}

func expectNone(t *testing.T, ch <-chan int, what string) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s: %d", what, v)
	case <-time.After(50 * time.Millisecond):
	}
}
