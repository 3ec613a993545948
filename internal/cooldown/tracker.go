// Package cooldown enforces a minimum interval between successful rolls for
// the same identity. State lives in process memory only.
package cooldown

import (
	"math"
	"sync"
	"time"
)

// Tracker maps identities to the time of their last successful roll.
// A single mutex guards the map; no method blocks on anything but that lock.
type Tracker struct {
	mu       sync.Mutex
	duration time.Duration
	last     map[string]time.Time
	inFlight map[string]struct{}
}

// NewTracker creates a tracker enforcing the given cooldown window.
func NewTracker(duration time.Duration) *Tracker {
	return &Tracker{
		duration: duration,
		last:     make(map[string]time.Time),
		inFlight: make(map[string]struct{}),
	}
}

// Duration returns the configured cooldown window.
func (t *Tracker) Duration() time.Duration {
	return t.duration
}

// CheckAndIsReady reports whether identity may roll at now. When it may not,
// remaining is the whole number of seconds left in the window, rounded up.
// An identity that has never rolled is always ready.
func (t *Tracker) CheckAndIsReady(identity string, now time.Time) (ready bool, remaining int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.checkLocked(identity, now)
}

// MarkRolled records now as identity's last successful roll.
func (t *Tracker) MarkRolled(identity string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[identity] = now
}

// Reserve checks readiness and, when ready, claims the identity for one
// in-flight roll. While the reservation is open every other Reserve or
// CheckAndIsReady call for the identity reports not ready, with the full
// window as the remaining wait.
func (t *Tracker) Reserve(identity string, now time.Time) (*Reservation, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ready, remaining := t.checkLocked(identity, now); !ready {
		return nil, remaining, false
	}
	t.inFlight[identity] = struct{}{}
	return &Reservation{tracker: t, identity: identity}, 0, true
}

// Len returns the number of identities with a recorded roll.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// Prune drops identities whose window has fully elapsed at now and returns
// how many were removed. An expired entry and an absent one are both ready,
// so pruning never changes a readiness answer.
func (t *Tracker) Prune(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, last := range t.last {
		if now.Sub(last) >= t.duration {
			delete(t.last, id)
			removed++
		}
	}
	return removed
}

func (t *Tracker) checkLocked(identity string, now time.Time) (bool, int) {
	if _, busy := t.inFlight[identity]; busy {
		return false, ceilSeconds(t.duration)
	}
	last, ok := t.last[identity]
	if !ok {
		return true, 0
	}
	elapsed := now.Sub(last)
	if elapsed >= t.duration {
		return true, 0
	}
	return false, ceilSeconds(t.duration - elapsed)
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// Reservation is an open claim on an identity's cooldown window. Exactly one
// of Commit or Release takes effect; later calls are no-ops.
type Reservation struct {
	tracker  *Tracker
	identity string
	done     bool
}

// Identity returns the identity the reservation was taken for.
func (r *Reservation) Identity() string {
	return r.identity
}

// Commit consumes the window: it records now as the last roll and drops the
// in-flight claim in one step.
func (r *Reservation) Commit(now time.Time) {
	t := r.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	delete(t.inFlight, r.identity)
	t.last[r.identity] = now
}

// Release drops the in-flight claim without touching the last roll time.
func (r *Reservation) Release() {
	t := r.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	delete(t.inFlight, r.identity)
}
