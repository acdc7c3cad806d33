package muxer

import (
	"context"
	"log/slog"
	"time"

	"libdb.so/luxmux/internal/image"
	"libdb.so/luxmux/internal/led"
)

const tickInterval = 250 * time.Millisecond

// command is a closure posted onto the actor's command channel, executed on
// the actor goroutine, with a done channel the caller blocks on so that any
// events the closure emits are observed before the public method returns.
type command struct {
	fn   func()
	done chan struct{}
}

// Muxer is the priority multiplexer. Construct with New, then run its actor
// loop with Run; every other exported method may be called from any
// goroutine once Run is executing.
type Muxer struct {
	log   *slog.Logger
	clock Clock
	bus   *Bus

	commands chan command
	async    chan func()
	closed   chan struct{}

	// Actor-owned state below. Touched only inside Run's goroutine, either
	// directly (ticks, timer callbacks routed through async) or via a
	// command closure.
	table           *table
	ledCount        int
	autoSelect      bool
	manualPriority  Priority
	manualPinnedYet bool
	currentPriority Priority
	enabled         bool
	trigger         *rateLimitedTrigger
}

// New creates a Muxer with ledCount LEDs in its LOWEST background record.
// It does not start the tick loop; call Run for that.
func New(logger *slog.Logger, clock Clock, ledCount int) *Muxer {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Muxer{
		log:             logger,
		clock:           clock,
		bus:             NewBus(),
		commands:        make(chan command),
		async:           make(chan func(), 32),
		closed:          make(chan struct{}),
		table:           newTable(ledCount),
		ledCount:        ledCount,
		autoSelect:      true,
		currentPriority: LowestPriority,
		enabled:         true,
	}
	m.trigger = newRateLimitedTrigger(m.emitTimeRunner, m.postAsync)
	return m
}

// Bus returns the muxer's event bus for subscription.
func (m *Muxer) Bus() *Bus { return m.bus }

// Run executes the actor loop: it services command and async-timer
// channels, and sweeps every tickInterval while enabled. It blocks until ctx
// is canceled.
func (m *Muxer) Run(ctx context.Context) error {
	defer close(m.closed)
	defer m.trigger.stop()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-m.commands:
			c.fn()
			close(c.done)
		case fn := <-m.async:
			fn()
		case <-ticker.C:
			if m.enabled {
				m.sweep()
			}
		}
	}
}

// do posts fn to the actor goroutine and blocks until it has run.
func (m *Muxer) do(fn func()) {
	c := command{fn: fn, done: make(chan struct{})}
	select {
	case m.commands <- c:
	case <-m.closed:
		return
	}
	select {
	case <-c.done:
	case <-m.closed:
	}
}

// postAsync schedules fn to run on the actor goroutine without waiting. It
// is how timer callbacks (running on their own goroutine) safely re-enter
// actor state, mirroring the teacher's packet-channel hand-off.
func (m *Muxer) postAsync(fn func()) {
	select {
	case m.async <- fn:
	case <-m.closed:
	}
}

func (m *Muxer) emitTimeRunner() {
	// time_runner is delivered as priorities_changed, plus a narrower
	// trigger_fired signal for consumers that count pulses specifically.
	m.bus.publish(TriggerFiredEvent{})
	m.bus.publish(PrioritiesChangedEvent{})
}

// SetEnabled starts or stops the tick loop, per §4.3's "runs every 250ms
// while enabled".
func (m *Muxer) SetEnabled(enabled bool) {
	m.do(func() { m.enabled = enabled })
}

// sweep runs one Tick Loop iteration: expire, trigger, re-select (§4.3).
func (m *Muxer) sweep() {
	now := m.clock.NowMS()
	for _, p := range m.table.keys() {
		in, ok := m.table.get(p)
		if !ok {
			continue
		}
		if ms, timed := in.Deadline.ExpiresAt(); timed && ms <= now {
			m.table.remove(p)
			m.log.Debug("timeout clear for priority", "priority", p)
			m.bus.publish(PriorityChangedEvent{Priority: p, Present: false})
			m.bus.publish(PrioritiesChangedEvent{})
			continue
		}
		if _, timed := in.Deadline.ExpiresAt(); timed && p < 254 && in.ComponentId.timesOutOnExpiry() {
			m.trigger.request()
		}
	}
	m.reselect()
}

// reselect evaluates the Selector and applies its result, releasing a
// vanished manual pin first (§4.2's fallback note) and publishing on
// change.
func (m *Muxer) reselect() {
	if !m.autoSelect && m.manualPinnedYet && !m.table.contains(m.manualPriority) {
		m.log.Debug("manual selected priority no longer available, switching to auto selection",
			"priority", m.manualPriority)
		m.autoSelect = true
		m.bus.publish(AutoSelectChangedEvent{Enabled: true})
	}

	newPriority := selectVisible(m.table, selectorMode{
		autoSelect:      m.autoSelect,
		manualPriority:  m.manualPriority,
		manualPinnedYet: m.manualPinnedYet,
	})
	if newPriority != m.currentPriority {
		m.currentPriority = newPriority
		m.log.Debug("visible priority changed", "priority", newPriority)
		m.bus.publish(VisiblePriorityChangedEvent{Priority: newPriority})
		m.bus.publish(PrioritiesChangedEvent{})
	}
}

// Register inserts a new record for priority if absent (starting inactive),
// or overwrites metadata on an existing one while preserving its deadline
// and payload.
func (m *Muxer) Register(priority Priority, componentId ComponentId, origin, owner string, smoothCfg uint32) {
	m.do(func() {
		existing, exists := m.table.get(priority)
		info := InputInfo{
			Priority:    priority,
			ComponentId: componentId,
			Origin:      origin,
			Owner:       owner,
			SmoothCfg:   smoothCfg,
		}
		if exists {
			info.Deadline = existing.Deadline
			info.LEDColors = existing.LEDColors
			info.Image = existing.Image
			m.table.insertOrUpdate(info)
			return
		}
		info.Deadline = InactiveDeadline()
		m.table.insertOrUpdate(info)
		m.log.Debug("register new input", "priority", priority, "component", componentId, "origin", origin)
		m.bus.publish(PriorityChangedEvent{Priority: priority, Present: true})
		m.bus.publish(PrioritiesChangedEvent{})
	})
}

// computeDeadline resolves the wire-level timeout_ms parameter (relative
// milliseconds, or the -1/-100 sentinels) into an absolute Deadline. Zero
// and other non-positive, non-sentinel values expire immediately, per §6.
func computeDeadline(timeoutMs, nowMS int64) Deadline {
	switch timeoutMs {
	case -100:
		return InactiveDeadline()
	case -1:
		return PersistentDeadline()
	}
	if timeoutMs > 0 {
		return AtDeadline(nowMS + timeoutMs)
	}
	return AtDeadline(nowMS)
}

// setInput is the shared body of SetColorInput/SetImageInput/SetInactive.
func (m *Muxer) setInput(priority Priority, timeoutMs int64, apply func(*InputInfo)) (bool, error) {
	var ok bool
	var err error
	m.do(func() {
		in, exists := m.table.get(priority)
		if !exists {
			m.log.Error("setInput used without register, priority probably reached timeout", "priority", priority)
			err = ErrUnregisteredPriority
			return
		}

		deadline := computeDeadline(timeoutMs, m.clock.NowMS())
		wasActive := in.Deadline.Active()
		nowActive := deadline.Active()

		in.Deadline = deadline
		apply(&in)
		m.table.insertOrUpdate(in)

		if wasActive != nowActive {
			m.log.Debug("priority active state changed", "priority", priority, "active", nowActive)
			m.bus.publish(ActiveStateChangedEvent{Priority: priority, Active: nowActive})
			m.bus.publish(PrioritiesChangedEvent{})
		}
		m.reselect()
		ok = true
	})
	return ok, err
}

// SetColorInput sets the LED colors for priority and (re)arms its deadline.
func (m *Muxer) SetColorInput(priority Priority, colors led.LEDs, timeoutMs int64) (bool, error) {
	return m.setInput(priority, timeoutMs, func(in *InputInfo) {
		in.LEDColors = append(led.LEDs(nil), colors...)
	})
}

// SetImageInput stores the image for priority instead of LED colors — the
// muxer never decodes or renders it — and (re)arms the priority's deadline.
// LEDColors is left as whatever it already was; rendering an image down to
// LED colors is a downstream-consumer concern, not the muxer's.
func (m *Muxer) SetImageInput(priority Priority, img image.Image, timeoutMs int64) (bool, error) {
	return m.setInput(priority, timeoutMs, func(in *InputInfo) {
		imgCopy := img
		in.Image = &imgCopy
	})
}

// SetInactive marks priority inactive without supplying new data.
func (m *Muxer) SetInactive(priority Priority) (bool, error) {
	return m.SetImageInput(priority, image.Image{}, -100)
}

// Clear removes priority's record, valid only for priority < LOWEST.
func (m *Muxer) Clear(priority Priority) bool {
	var ok bool
	m.do(func() { ok = m.clearLocked(priority) })
	return ok
}

func (m *Muxer) clearLocked(priority Priority) bool {
	if priority >= LowestPriority {
		return false
	}
	if !m.table.remove(priority) {
		return false
	}
	m.log.Debug("removed source priority", "priority", priority)
	m.reselect()
	m.bus.publish(PriorityChangedEvent{Priority: priority, Present: false})
	m.bus.publish(PrioritiesChangedEvent{})
	return true
}

// ClearAll wipes every non-LOWEST record (force) or only Color/Effect
// sources below priority 254 (soft), leaving Grabber/stream sources intact.
func (m *Muxer) ClearAll(force bool) {
	m.do(func() {
		if force {
			m.table.reset(m.ledCount)
			m.currentPriority = LowestPriority
			return
		}
		for _, p := range m.table.keys() {
			in, ok := m.table.get(p)
			if !ok {
				continue
			}
			// The upper bound replicates a documented off-by-one in the
			// source this was distilled from: priority 254 is excluded from
			// soft clear-all, same as LOWEST itself.
			if (in.ComponentId == ComponentColor || in.ComponentId == ComponentEffect) && p < 254 {
				m.clearLocked(p)
			}
		}
	})
}

// SetManualPriority pins priority and disables auto-select, provided
// priority is present in the table.
func (m *Muxer) SetManualPriority(priority Priority) bool {
	var ok bool
	m.do(func() {
		if !m.table.contains(priority) {
			ok = false
			return
		}
		m.manualPriority = priority
		m.manualPinnedYet = true
		m.setAutoSelectLocked(false, true)
		ok = true
	})
	return ok
}

// SetAutoSelect enables or disables auto-select. Disabling requires the
// current manual pin to be present; update controls whether the visible
// priority is re-evaluated synchronously.
func (m *Muxer) SetAutoSelect(enabled, update bool) bool {
	var ok bool
	m.do(func() { ok = m.setAutoSelectLocked(enabled, update) })
	return ok
}

func (m *Muxer) setAutoSelectLocked(enabled, update bool) bool {
	if m.autoSelect == enabled {
		return false
	}
	if !enabled && (!m.manualPinnedYet || !m.table.contains(m.manualPriority)) {
		m.log.Warn("cannot disable auto select, manual selected priority is not available",
			"priority", m.manualPriority)
		return false
	}

	m.autoSelect = enabled
	m.log.Debug("source auto select changed", "enabled", enabled)
	m.bus.publish(AutoSelectChangedEvent{Enabled: enabled})
	if update {
		m.reselect()
	}
	return true
}

// GetVisible returns a copy of the record at the currently visible
// priority, falling back to LOWEST.
func (m *Muxer) GetVisible() InputInfo {
	var out InputInfo
	m.do(func() {
		out = m.table.getOrDefault(m.currentPriority).clone()
	})
	return out
}

// GetInputInfo returns a copy of the record at priority, falling back to
// LOWEST when absent (the original getInputInfo fallback, see SPEC_FULL §12).
func (m *Muxer) GetInputInfo(priority Priority) InputInfo {
	var out InputInfo
	m.do(func() {
		out = m.table.getOrDefault(priority).clone()
	})
	return out
}

// HasPriority reports whether priority participates in selection
// bookkeeping. LOWEST is always present.
func (m *Muxer) HasPriority(priority Priority) bool {
	if priority == LowestPriority {
		return true
	}
	var ok bool
	m.do(func() { ok = m.table.contains(priority) })
	return ok
}

// GetPriorities returns a snapshot of the current priority key set.
func (m *Muxer) GetPriorities() []Priority {
	var out []Priority
	m.do(func() { out = m.table.keys() })
	return out
}

// UpdateLEDCount resizes every record's LED buffer to n.
func (m *Muxer) UpdateLEDCount(n int) {
	m.do(func() {
		m.ledCount = n
		m.table.resizeAllLEDBuffers(n)
	})
}
