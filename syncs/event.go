// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"fmt"
	"time"
)

// EventMode is whether an [Event] resets itself.
type EventMode int

const (
	// AutoReset events are consumed by the first waiter they release.
	AutoReset EventMode = iota
	// ManualReset events stay signaled until Reset.
	ManualReset
)

func (m EventMode) String() string {
	switch m {
	case AutoReset:
		return "auto-reset"
	case ManualReset:
		return "manual-reset"
	}
	return fmt.Sprintf("EventMode(%d)", int(m))
}

// Event is a level-triggered signal that goroutines can wait for.
//
// A manual-reset Event, once Set, releases every waiter, present and
// future, until Reset. An auto-reset Event releases exactly one waiter per
// Set and is unsignaled again as that waiter returns; no two waiters can
// consume the same Set.
//
// The zero value is an unsignaled auto-reset Event.
type Event struct {
	mu       Mutex
	cond     Cond
	manual   bool // immutable
	signaled bool // guarded by mu
}

// NewEvent returns an Event in the given mode, initially signaled or not.
func NewEvent(mode EventMode, signaled bool) *Event {
	return &Event{
		manual:   mode == ManualReset,
		signaled: signaled,
	}
}

// Mode returns e's reset mode.
func (e *Event) Mode() EventMode {
	if e.manual {
		return ManualReset
	}
	return AutoReset
}

// Set signals e and wakes all waiters.
func (e *Event) Set() {
	defer Lock(&e.mu).Unlock()
	e.signaled = true
	e.cond.Broadcast()
}

// Reset makes e unsignaled.
func (e *Event) Reset() {
	defer Lock(&e.mu).Unlock()
	e.signaled = false
}

// IsSet reports whether e is signaled, without consuming it.
// The answer may be stale by the time the caller sees it.
func (e *Event) IsSet() bool {
	defer Lock(&e.mu).Unlock()
	return e.signaled
}

// Wait blocks until e is signaled. An auto-reset Event is reset before
// Wait returns.
func (e *Event) Wait() error {
	_, err := e.wait(Infinite)
	return err
}

// TimedWait is like Wait but gives up after timeout, reporting whether e
// was signaled. On timeout e is left untouched.
func (e *Event) TimedWait(timeout time.Duration) (bool, error) {
	return e.wait(timeout)
}

func (e *Event) wait(timeout time.Duration) (bool, error) {
	dl := deadline(timeout)
	defer Lock(&e.mu).Unlock()
	for !e.signaled {
		left := remaining(dl)
		if left == 0 {
			return false, nil
		}
		if _, err := e.cond.TimedWait(&e.mu, left); err != nil {
			return false, err
		}
	}
	if !e.manual {
		e.signaled = false
	}
	return true, nil
}

// release implements releaser by handing back a signal consumed by
// WaitMany.
func (e *Event) release() error {
	if !e.manual {
		e.Set()
	}
	return nil
}
