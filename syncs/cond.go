// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"slices"
	"sync"
	"time"
)

// Cond is a condition variable. Unlike [sync.Cond] it has no fixed Locker;
// each wait names the [Mutex] it releases and reacquires, and waits can be
// bounded.
//
// The zero value is ready to use. A Cond must not be copied after first
// use.
//
// Wakeups are not retried: callers check their predicate in a loop around
// Wait, holding the mutex, as with any condition variable.
type Cond struct {
	mu      sync.Mutex      // guards waiters; leaf lock
	waiters []chan struct{} // FIFO; a waiter is woken by closing its chan
}

// NewCond returns a new Cond.
func NewCond() *Cond {
	return new(Cond)
}

// Wait atomically unlocks m and suspends the caller until woken by Signal
// or Broadcast, then locks m again before returning.
//
// m must be locked on entry; otherwise Wait returns an OperationFailure
// error without blocking.
func (c *Cond) Wait(m *Mutex) error {
	_, err := c.wait("Cond.Wait", m, Infinite)
	return err
}

// TimedWait is like Wait but gives up after timeout. It reports whether it
// was woken; false means the timeout elapsed. m is locked again on return
// in both cases.
func (c *Cond) TimedWait(m *Mutex, timeout time.Duration) (bool, error) {
	return c.wait("Cond.TimedWait", m, timeout)
}

func (c *Cond) wait(op string, m *Mutex, timeout time.Duration) (bool, error) {
	if m == nil {
		return false, operationError(op, errNilMutex)
	}
	if !m.Locked() {
		return false, operationError(op, errNotLocked)
	}

	// Enqueue before releasing m: a Signal sent by whoever takes m next
	// must find this waiter.
	wake := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, wake)
	c.mu.Unlock()

	if err := m.Unlock(); err != nil {
		c.remove(wake)
		return false, err
	}
	woken := waitWake(wake, timeout)
	if !woken && !c.remove(wake) {
		// Signal dequeued us after the timeout fired but before we
		// could withdraw. Take the wakeup rather than drop it.
		woken = true
	}
	m.Lock()
	return woken, nil
}

// remove withdraws wake from the queue and reports whether it was still
// queued.
func (c *Cond) remove(wake chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.waiters, wake)
	if i < 0 {
		return false
	}
	c.waiters = slices.Delete(c.waiters, i, i+1)
	return true
}

// Signal wakes one waiter, if any.
func (c *Cond) Signal() {
	c.mu.Lock()
	var wake chan struct{}
	if len(c.waiters) > 0 {
		wake = c.waiters[0]
		c.waiters = slices.Delete(c.waiters, 0, 1)
	}
	c.mu.Unlock()
	if wake != nil {
		close(wake)
	}
}

// Broadcast wakes all current waiters.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, wake := range waiters {
		close(wake)
	}
}

// numWaiters reports how many callers are blocked in Wait or TimedWait.
func (c *Cond) numWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
