// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package syncs contains blocking synchronization primitives with bounded
// waits: a [Mutex] with a timed lock, a [Cond] bound to a [Mutex] at wait
// time, manual- and auto-reset [Event]s, and a [Thread] that runs a unit of
// work on its own OS thread. All of them can be waited on through the
// [Waitable] interface, individually with [WaitOne] or in bulk with
// [WaitMany].
//
// The lock backend is chosen at build time. By default it has a native
// bounded wait. Building with the ts_syncs_poll tag selects a backend that
// emulates timed waits by polling, as on platforms whose native lock has no
// timed variant; see [LockPollQuantum] for the latency that implies.
package syncs

import (
	"fmt"
	"math"
	"time"
)

// Infinite is the timeout that means "block until satisfied".
const Infinite = time.Duration(math.MaxInt64)

// InfiniteMillis is the millisecond timeout value that [Millis] maps to
// [Infinite].
const InfiniteMillis = math.MaxUint32

// Millis returns the timeout for a count of milliseconds.
// InfiniteMillis maps to Infinite.
func Millis(ms uint32) time.Duration {
	if ms == InfiniteMillis {
		return Infinite
	}
	return time.Duration(ms) * time.Millisecond
}

// WaitResult is the outcome of a bounded wait.
type WaitResult int

const (
	// Signaled means the object was satisfied before the timeout.
	Signaled WaitResult = iota
	// TimedOut means the timeout elapsed first. It is not an error.
	TimedOut
	// Failed means the wait itself failed; an error accompanies it.
	Failed
)

func (r WaitResult) String() string {
	switch r {
	case Signaled:
		return "signaled"
	case TimedOut:
		return "timedout"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("WaitResult(%d)", int(r))
}

// Waitable is anything that can be waited on, either indefinitely or for a
// bounded time.
//
// What "satisfied" means depends on the implementation: a [Mutex] is
// acquired (and the caller then owns it), an [Event] is signaled (and an
// auto-reset event is consumed), a [Thread] has returned.
type Waitable interface {
	// Wait blocks until the object is satisfied.
	Wait() error

	// TimedWait is like Wait but gives up after timeout, reporting whether
	// the object was satisfied. A zero timeout probes without blocking.
	TimedWait(timeout time.Duration) (bool, error)
}

var (
	_ Waitable = (*Mutex)(nil)
	_ Waitable = (*Event)(nil)
	_ Waitable = (*Thread)(nil)
)

// timer returns a channel that fires after d, and a func to release it.
// For Infinite it returns a nil channel, which never fires.
func timer(d time.Duration) (<-chan time.Time, func()) {
	if d == Infinite {
		return nil, func() {}
	}
	t := time.NewTimer(max(d, 0))
	return t.C, func() { t.Stop() }
}

// deadline returns the absolute deadline for a timeout starting now.
// The zero Time means no deadline.
func deadline(d time.Duration) time.Time {
	if d == Infinite {
		return time.Time{}
	}
	return time.Now().Add(max(d, 0))
}

// remaining returns how long is left until dl, never negative.
// It returns Infinite for the zero deadline.
func remaining(dl time.Time) time.Duration {
	if dl.IsZero() {
		return Infinite
	}
	return max(time.Until(dl), 0)
}
