// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import "time"

// Mutex is a mutual exclusion lock with a bounded-time lock operation.
//
// The zero value is an unlocked mutex. A Mutex must not be copied after
// first use. It is not reentrant: locking it twice from the same goroutine
// without an Unlock in between deadlocks.
//
// Like [sync.Mutex], a locked Mutex is not associated with a particular
// goroutine. Callers should pair Lock with Unlock on the same call path,
// preferably through [Lock] and [ScopedLock.Unlock].
type Mutex struct {
	l lockImpl
}

// NewMutex returns a new unlocked Mutex.
func NewMutex() *Mutex {
	return new(Mutex)
}

// Lock locks m, blocking until it is available.
func (m *Mutex) Lock() {
	m.l.lock()
}

// TryLock locks m if it is not already locked and reports whether it did.
func (m *Mutex) TryLock() bool {
	return m.l.tryLock()
}

// TimedLock tries to lock m for up to timeout and reports whether it did.
//
// A zero (or negative) timeout is the same as TryLock, and [Infinite] is
// the same as Lock. With the polling backend the call can overshoot the
// timeout by up to one [LockPollQuantum].
func (m *Mutex) TimedLock(timeout time.Duration) bool {
	switch {
	case timeout <= 0:
		return m.l.tryLock()
	case timeout == Infinite:
		m.l.lock()
		return true
	}
	return m.l.timedLock(timeout)
}

// Unlock unlocks m. Unlocking a Mutex that isn't locked returns an
// OperationFailure error and leaves m unlocked.
func (m *Mutex) Unlock() error {
	if !m.l.unlock() {
		return operationError("Mutex.Unlock", errNotLocked)
	}
	return nil
}

// Locked reports whether m is currently locked by anyone.
// The answer may be stale by the time the caller sees it.
func (m *Mutex) Locked() bool {
	return m.l.locked()
}

// Wait locks m. It implements [Waitable]; the caller owns the lock
// afterwards.
func (m *Mutex) Wait() error {
	m.Lock()
	return nil
}

// TimedWait is TimedLock. It implements [Waitable]; when it reports true
// the caller owns the lock.
func (m *Mutex) TimedWait(timeout time.Duration) (bool, error) {
	return m.TimedLock(timeout), nil
}

// release implements releaser for WaitMany's wait-all rollback.
func (m *Mutex) release() error { return m.Unlock() }
