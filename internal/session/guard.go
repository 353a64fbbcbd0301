package session

import "sync"

// NavigationDecision is the guard's verdict on a departure attempt.
type NavigationDecision string

const (
	// NavigationAllowed lets the navigation proceed immediately.
	NavigationAllowed NavigationDecision = "allowed"
	// NavigationBlocked defers the navigation behind a confirm/cancel prompt.
	NavigationBlocked NavigationDecision = "blocked"
	// NavigationWarned is the page-unload case: nothing can be deferred, the
	// caller should show a native warning and take no further action.
	NavigationWarned NavigationDecision = "warned"
)

// NavigationIntent is a captured, deferred departure target.
type NavigationIntent struct {
	Target string
}

// NavigationGuard intercepts departures from an in-progress session and
// routes them through a confirm-or-cancel protocol. It only blocks while
// armed and only for targets that differ from the guarded location, so
// controller-driven phase navigation passes through untouched.
type NavigationGuard struct {
	mu       sync.Mutex
	armed    bool
	location string
	pending  *NavigationIntent
}

func NewNavigationGuard() *NavigationGuard {
	return &NavigationGuard{}
}

// Arm starts guarding departures away from currentLocation.
func (g *NavigationGuard) Arm(currentLocation string) {
	g.mu.Lock()
	g.armed = true
	g.location = currentLocation
	g.pending = nil
	g.mu.Unlock()
}

// Disarm stops guarding and discards any deferred intent.
func (g *NavigationGuard) Disarm() {
	g.mu.Lock()
	g.armed = false
	g.pending = nil
	g.mu.Unlock()
}

// Attempt records a navigation attempt. A blocked attempt replaces any
// previously captured intent.
func (g *NavigationGuard) Attempt(target string, unload bool) NavigationDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.armed {
		return NavigationAllowed
	}
	if unload {
		// No async work survives an unload, so there is nothing to defer.
		return NavigationWarned
	}
	if target == g.location {
		return NavigationAllowed
	}
	g.pending = &NavigationIntent{Target: target}
	return NavigationBlocked
}

// Confirm takes the deferred intent for replay. False when nothing pends.
func (g *NavigationGuard) Confirm() (NavigationIntent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return NavigationIntent{}, false
	}
	intent := *g.pending
	g.pending = nil
	return intent, true
}

// Cancel discards the deferred intent; the session is left untouched.
func (g *NavigationGuard) Cancel() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}
