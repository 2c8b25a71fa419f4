package coordinator

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// turnTimer arms a single per-turn deadline; arming a new one cancels any
// outstanding timer, so exactly one deadline is ever pending per table.
// Production wiring uses quartz.NewReal(); tests inject quartz.NewMock()
// and advance it explicitly, giving deterministic fallback-action tests
// without time.Sleep.
type turnTimer struct {
	clock quartz.Clock

	mu       sync.Mutex
	pending  *quartz.Timer
	deadline time.Time
}

func newTurnTimer(clock quartz.Clock) *turnTimer {
	return &turnTimer{clock: clock}
}

// Arm schedules fire to run after d, replacing any timer already pending.
// fire is responsible for re-validating that the hand/seat it was armed
// for is still current before acting; Arm itself only handles scheduling.
func (t *turnTimer) Arm(d time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
	}
	t.deadline = t.clock.Now().Add(d)
	t.pending = t.clock.AfterFunc(d, fire)
}

// Cancel stops any pending timer. Safe to call when none is armed.
func (t *turnTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

// Remaining reports the time left on the pending timer, so a reconnecting
// actor can be told how much of its clock is left rather than the full
// per-decision allowance.
func (t *turnTimer) Remaining(now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return 0, false
	}
	d := t.deadline.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
