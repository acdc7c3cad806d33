// Package muxer implements the priority multiplexer: it registers sources,
// ingests their color/image data, ages inputs out on timeout, and publishes
// exactly one "visible" priority to downstream consumers.
//
// The whole package runs as a single-threaded actor (see Muxer.Run): every
// public method posts a closure onto the actor's command channel and blocks
// until it has run, so callers on any goroutine observe a linearized,
// synchronously-applied view of the table exactly as if they had called
// straight into single-threaded code.
package muxer

import (
	"fmt"

	"libdb.so/luxmux/internal/image"
	"libdb.so/luxmux/internal/led"
)

// Priority is a slot in [0, 255]. Lower numeric value wins.
type Priority uint8

// LowestPriority is reserved for the always-present background source.
const LowestPriority Priority = 255

// ComponentId identifies the kind of source occupying a priority slot.
type ComponentId uint8

const (
	ComponentColor ComponentId = iota
	ComponentEffect
	ComponentImage
	ComponentGrabber
	ComponentBoblightServer
	ComponentFlatBuffer
	ComponentProtoBuffer
	ComponentV4L
)

func (c ComponentId) String() string {
	switch c {
	case ComponentColor:
		return "COLOR"
	case ComponentEffect:
		return "EFFECT"
	case ComponentImage:
		return "IMAGE"
	case ComponentGrabber:
		return "GRABBER"
	case ComponentBoblightServer:
		return "BOBLIGHTSERVER"
	case ComponentFlatBuffer:
		return "FLATBUFFER"
	case ComponentProtoBuffer:
		return "PROTOBUFFER"
	case ComponentV4L:
		return "V4L"
	default:
		return fmt.Sprintf("ComponentId(%d)", uint8(c))
	}
}

// timesOutOnExpiry reports whether this component kind participates in the
// Rate-Limited Trigger's steady pulse while it counts down to a deadline.
func (c ComponentId) timesOutOnExpiry() bool {
	return c == ComponentColor || c == ComponentEffect
}

// deadlineKind distinguishes the three states a slot's expiration can be in,
// internally replacing the wire-level sentinel encoding (-100, -1, >0) with
// a small sum type, per the design notes. The sentinels are only produced or
// consumed at the package boundary (see DeadlineFromMillis / Millis).
type deadlineKind uint8

const (
	deadlineInactive deadlineKind = iota
	deadlinePersistent
	deadlineAt
)

// Deadline is an input's expiration state.
type Deadline struct {
	kind deadlineKind
	ms   int64 // valid only when kind == deadlineAt
}

// InactiveDeadline is the deadline of a slot registered but awaiting its
// first data.
func InactiveDeadline() Deadline { return Deadline{kind: deadlineInactive} }

// PersistentDeadline is the deadline of a slot with no expiration.
func PersistentDeadline() Deadline { return Deadline{kind: deadlinePersistent} }

// AtDeadline is an absolute monotonic-millisecond expiration.
func AtDeadline(ms int64) Deadline { return Deadline{kind: deadlineAt, ms: ms} }

// DeadlineFromMillis decodes the wire-level sentinel encoding: -100 means
// inactive, -1 means persistent, anything else is an absolute deadline.
func DeadlineFromMillis(ms int64) Deadline {
	switch ms {
	case -100:
		return InactiveDeadline()
	case -1:
		return PersistentDeadline()
	default:
		return AtDeadline(ms)
	}
}

// Millis re-encodes the deadline using the wire-level sentinel encoding.
func (d Deadline) Millis() int64 {
	switch d.kind {
	case deadlineInactive:
		return -100
	case deadlinePersistent:
		return -1
	default:
		return d.ms
	}
}

// Active reports whether the deadline is anything other than "awaiting first
// data" — the condition the Selector calls "not inactive".
func (d Deadline) Active() bool {
	return d.kind != deadlineInactive
}

// ExpiresAt returns the absolute deadline and true if this is a timed
// (non-persistent, non-inactive) deadline.
func (d Deadline) ExpiresAt() (ms int64, ok bool) {
	return d.ms, d.kind == deadlineAt
}

func (d Deadline) String() string {
	switch d.kind {
	case deadlineInactive:
		return "inactive"
	case deadlinePersistent:
		return "persistent"
	default:
		return fmt.Sprintf("at(%d)", d.ms)
	}
}

// InputInfo is the record held for one active priority slot.
type InputInfo struct {
	Priority    Priority
	ComponentId ComponentId
	Origin      string
	Owner       string
	SmoothCfg   uint32
	Deadline    Deadline
	LEDColors   led.LEDs
	Image       *image.Image
}

// clone returns a deep-enough copy for safe hand-off outside the actor: the
// LED slice and image pointer are the only mutable-looking fields callers
// could otherwise alias into actor-owned state.
func (in InputInfo) clone() InputInfo {
	out := in
	if in.LEDColors != nil {
		out.LEDColors = append(led.LEDs(nil), in.LEDColors...)
	}
	if in.Image != nil {
		img := *in.Image
		img.Pixels = append([]uint8(nil), in.Image.Pixels...)
		out.Image = &img
	}
	return out
}
