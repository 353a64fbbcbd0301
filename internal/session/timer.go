package session

import (
	"sync"
	"time"
)

type timerState int

const (
	timerIdle timerState = iota
	timerRunning
	timerExpired
	timerStopped
)

// WarningThreshold is the remaining-seconds mark at which the one-time
// low-time warning fires: ceil(total * 0.2).
func WarningThreshold(totalSeconds int) int {
	return (totalSeconds + 4) / 5
}

// TimerCallbacks receive the countdown signals. All callbacks are invoked
// from the timer's tick goroutine, never concurrently with each other.
type TimerCallbacks struct {
	OnTick    func(remaining int)
	OnWarning func(remaining int)
	OnExpired func()
}

// TimerEngine owns one countdown clock for one session. It ticks once per
// second, fires the warning exactly once, and halts on expiry or Stop.
type TimerEngine struct {
	clock Clock
	cb    TimerCallbacks

	mu        sync.Mutex
	state     timerState
	total     int
	remaining int
	warned    bool
	stopCh    chan struct{}
}

func NewTimerEngine(clock Clock, cb TimerCallbacks) *TimerEngine {
	if clock == nil {
		clock = RealClock()
	}
	return &TimerEngine{clock: clock, cb: cb}
}

// Start begins ticking down from remaining toward zero. A resumed session
// passes remaining < total; warningAlreadyFired suppresses a re-alert for
// time that elapsed before the resume.
func (t *TimerEngine) Start(totalSeconds, remainingSeconds int, warningAlreadyFired bool) {
	t.mu.Lock()
	if t.state != timerIdle {
		t.mu.Unlock()
		return
	}
	if remainingSeconds > totalSeconds {
		remainingSeconds = totalSeconds
	}
	t.state = timerRunning
	t.total = totalSeconds
	t.remaining = remainingSeconds
	t.warned = warningAlreadyFired
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	ticker := t.clock.NewTicker(time.Second)
	go t.run(ticker)
}

// Stop halts ticking immediately. Idempotent; a no-op after expiry.
func (t *TimerEngine) Stop() {
	t.mu.Lock()
	if t.state == timerRunning {
		t.state = timerStopped
		close(t.stopCh)
	}
	t.mu.Unlock()
}

// Remaining reports the seconds left on the clock.
func (t *TimerEngine) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *TimerEngine) run(ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			if !t.tick() {
				return
			}
		case <-t.stopCh:
			return
		}
	}
}

// tick decrements the clock and dispatches signals. Returns false once the
// engine has left the running state so the loop halts without another tick.
func (t *TimerEngine) tick() bool {
	t.mu.Lock()
	if t.state != timerRunning {
		t.mu.Unlock()
		return false
	}
	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}
	remaining := t.remaining
	expired := remaining == 0
	fireWarning := false
	if !expired && !t.warned && remaining <= WarningThreshold(t.total) {
		t.warned = true
		fireWarning = true
	}
	if expired {
		t.state = timerExpired
	}
	t.mu.Unlock()

	if t.cb.OnTick != nil {
		t.cb.OnTick(remaining)
	}
	if fireWarning && t.cb.OnWarning != nil {
		t.cb.OnWarning(remaining)
	}
	if expired {
		if t.cb.OnExpired != nil {
			t.cb.OnExpired()
		}
		return false
	}
	return true
}
