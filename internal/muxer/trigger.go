package muxer

import "time"

const (
	blockDuration    = 1000 * time.Millisecond
	deferredDuration = 500 * time.Millisecond
)

// triggerPhase names the two-timer state machine of §4.4 and §9's design
// note ("implement as two small state machines").
type triggerPhase uint8

const (
	// phaseIdle: no block window open, a request fires immediately.
	phaseIdle triggerPhase = iota
	// phaseBlocked: inside the 1000ms block window, no deferred pending.
	phaseBlocked
	// phaseBlockedPending: inside the block window, a deferred re-check is
	// armed to fire once the window ends (or sooner, coalescing bursts).
	phaseBlockedPending
)

// rateLimitedTrigger emits a "time_runner" pulse at most once per 1000ms
// window, coalescing bursts of requests into a single deferred re-check.
//
// It is not safe for concurrent use. All of its exported methods must run
// on the muxer actor's goroutine; timer callbacks re-enter the actor via
// post, exactly like the teacher's packet-channel hand-off in catglow.go's
// mainLoop.
type rateLimitedTrigger struct {
	phase         triggerPhase
	blockTimer    *time.Timer
	deferredTimer *time.Timer

	// fire is called synchronously, on the actor goroutine, to emit the
	// time_runner pulse (delivered as priorities_changed).
	fire func()
	// post schedules fn to run later, on the actor goroutine. Timer
	// callbacks use this instead of calling back into trigger state
	// directly, since they run on their own goroutine.
	post func(fn func())
}

func newRateLimitedTrigger(fire func(), post func(func())) *rateLimitedTrigger {
	return &rateLimitedTrigger{fire: fire, post: post}
}

// request is the entry point for both a real trigger request (from the tick
// loop's sweep) and a deferred timer re-check re-entering the same logic.
func (t *rateLimitedTrigger) request() {
	switch t.phase {
	case phaseIdle:
		t.fire()
		t.phase = phaseBlocked
		t.armBlock()
	case phaseBlocked, phaseBlockedPending:
		// Only the most recent request wins: (re)arm the deferred timer,
		// coalescing any burst since the last request.
		t.phase = phaseBlockedPending
		t.armDeferred()
	}
}

func (t *rateLimitedTrigger) armBlock() {
	if t.blockTimer != nil {
		t.blockTimer.Stop()
	}
	t.blockTimer = time.AfterFunc(blockDuration, func() {
		t.post(t.onBlockElapsed)
	})
}

func (t *rateLimitedTrigger) onBlockElapsed() {
	pending := t.phase == phaseBlockedPending
	t.phase = phaseIdle
	if pending {
		// The suppressed request(s) get their turn now that the window has
		// ended; the still-armed deferred timer would otherwise duplicate
		// this, so cancel it.
		if t.deferredTimer != nil {
			t.deferredTimer.Stop()
			t.deferredTimer = nil
		}
		t.request()
	}
}

func (t *rateLimitedTrigger) armDeferred() {
	if t.deferredTimer != nil {
		t.deferredTimer.Stop()
	}
	t.deferredTimer = time.AfterFunc(deferredDuration, func() {
		t.post(t.onDeferredElapsed)
	})
}

func (t *rateLimitedTrigger) onDeferredElapsed() {
	t.deferredTimer = nil
	t.request()
}

// stop cancels any pending timers, for use during shutdown.
func (t *rateLimitedTrigger) stop() {
	if t.blockTimer != nil {
		t.blockTimer.Stop()
	}
	if t.deferredTimer != nil {
		t.deferredTimer.Stop()
	}
}
