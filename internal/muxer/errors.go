package muxer

import "github.com/pkg/errors"

// ErrUnregisteredPriority is returned when a set_* call targets a priority
// that was never registered (or has since expired). Nothing is retried and
// nothing is fatal: it surfaces only via this error return and a log line.
var ErrUnregisteredPriority = errors.New("muxer: priority not registered")
