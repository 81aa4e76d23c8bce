// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import "errors"

// ScopedLock holds a [Mutex] locked until its Unlock method is called.
//
// The usual form releases the mutex on every return path, including
// panics:
//
//	defer syncs.Lock(&mu).Unlock()
type ScopedLock struct {
	m *Mutex // nil once released
}

// Lock locks m and returns a ScopedLock that owns it.
// It panics if m is nil.
func Lock(m *Mutex) *ScopedLock {
	if m == nil {
		panic("syncs: Lock of nil Mutex")
	}
	m.Lock()
	return &ScopedLock{m: m}
}

// Unlock releases the mutex. Calls after the first are no-ops.
//
// It panics if the mutex was already unlocked behind the ScopedLock's
// back, since whatever the mutex protects can no longer be trusted.
func (l *ScopedLock) Unlock() {
	m := l.m
	if m == nil {
		return
	}
	l.m = nil
	if err := m.Unlock(); err != nil {
		panic(err)
	}
}

// Held reports whether l still owns its mutex.
func (l *ScopedLock) Held() bool {
	return l.m != nil
}

// WithLock calls fn with m locked and returns its error.
// m is unlocked when fn returns or panics; a panic is propagated after
// the unlock.
func WithLock(m *Mutex, fn func() error) (err error) {
	if m == nil {
		return operationError("WithLock", errNilMutex)
	}
	m.Lock()
	defer func() {
		if uerr := m.Unlock(); uerr != nil {
			err = errors.Join(err, uerr)
		}
	}()
	return fn()
}
