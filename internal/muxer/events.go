package muxer

import "github.com/kelindar/event"

// Event type identifiers for kelindar/event's reflection-based dispatch.
const (
	TypePriorityChanged uint32 = iota + 1
	TypeActiveStateChanged
	TypeVisiblePriorityChanged
	TypeAutoSelectChanged
	TypePrioritiesChanged
	TypeTriggerFired
)

// PriorityChangedEvent fires on register (Present=true) and on removal or
// expiry (Present=false).
type PriorityChangedEvent struct {
	Priority Priority
	Present  bool
}

func (e PriorityChangedEvent) Type() uint32 { return TypePriorityChanged }

// ActiveStateChangedEvent fires on the inactive (-100) <-> not-inactive
// transition.
type ActiveStateChangedEvent struct {
	Priority Priority
	Active   bool
}

func (e ActiveStateChangedEvent) Type() uint32 { return TypeActiveStateChanged }

// VisiblePriorityChangedEvent fires when the Selector's output changes.
type VisiblePriorityChangedEvent struct {
	Priority Priority
}

func (e VisiblePriorityChangedEvent) Type() uint32 { return TypeVisiblePriorityChanged }

// AutoSelectChangedEvent fires when the auto-select mode flag flips.
type AutoSelectChangedEvent struct {
	Enabled bool
}

func (e AutoSelectChangedEvent) Type() uint32 { return TypeAutoSelectChanged }

// PrioritiesChangedEvent is the union notification fired after any of the
// above, and on every Rate-Limited Trigger emission (the "time_runner"
// pulse).
type PrioritiesChangedEvent struct{}

func (e PrioritiesChangedEvent) Type() uint32 { return TypePrioritiesChanged }

// TriggerFiredEvent fires once per Rate-Limited Trigger emission, i.e. every
// time_runner pulse. It is narrower than PrioritiesChangedEvent, which also
// fires on ordinary register/clear/reselect changes, so consumers that need
// to count trigger pulses specifically (e.g. metrics) subscribe to this
// instead.
type TriggerFiredEvent struct{}

func (e TriggerFiredEvent) Type() uint32 { return TypeTriggerFired }

// Bus wraps a kelindar/event dispatcher scoped to the six muxer event
// types. It is deliberately narrow, mirroring the teacher-adjacent
// videonode/internal/events.Bus: a closed type switch over known event
// structs rather than a fully generic pub/sub surface.
type Bus struct {
	dispatcher *event.Dispatcher
}

// NewBus creates a new, empty event bus.
func NewBus() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// publish dispatches ev to every subscriber registered for its concrete
// type. It is unexported: only the muxer actor publishes, always from
// inside a single mutation, after state has been fully updated.
func (b *Bus) publish(ev interface {
	Type() uint32
}) {
	switch e := ev.(type) {
	case PriorityChangedEvent:
		event.Publish(b.dispatcher, e)
	case ActiveStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case VisiblePriorityChangedEvent:
		event.Publish(b.dispatcher, e)
	case AutoSelectChangedEvent:
		event.Publish(b.dispatcher, e)
	case PrioritiesChangedEvent:
		event.Publish(b.dispatcher, e)
	case TriggerFiredEvent:
		event.Publish(b.dispatcher, e)
	}
}

// OnPriorityChanged subscribes to PriorityChangedEvent. It returns an
// unsubscribe function.
func (b *Bus) OnPriorityChanged(h func(PriorityChangedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}

// OnActiveStateChanged subscribes to ActiveStateChangedEvent.
func (b *Bus) OnActiveStateChanged(h func(ActiveStateChangedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}

// OnVisiblePriorityChanged subscribes to VisiblePriorityChangedEvent.
func (b *Bus) OnVisiblePriorityChanged(h func(VisiblePriorityChangedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}

// OnAutoSelectChanged subscribes to AutoSelectChangedEvent.
func (b *Bus) OnAutoSelectChanged(h func(AutoSelectChangedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}

// OnPrioritiesChanged subscribes to PrioritiesChangedEvent, the union
// notification most UI and output-pipeline consumers actually want.
func (b *Bus) OnPrioritiesChanged(h func(PrioritiesChangedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}

// OnTriggerFired subscribes to TriggerFiredEvent, the narrow per-pulse
// signal consumers counting time_runner emissions want.
func (b *Bus) OnTriggerFired(h func(TriggerFiredEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}
