package muxer

import "time"

// Clock is a monotonic millisecond source. It is an interface purely so
// tests can control time without sleeping through real timeouts.
type Clock interface {
	// NowMS returns the current time in milliseconds. It need not correspond
	// to wall-clock time, only advance monotonically.
	NowMS() int64
}

// systemClock is the production Clock, backed by the monotonic reading
// time.Now() carries internally.
type systemClock struct{ start time.Time }

// NewSystemClock returns a Clock backed by the real monotonic clock.
func NewSystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) NowMS() int64 {
	return time.Since(c.start).Milliseconds()
}
