// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build ts_syncs_poll

package syncs

import (
	"sync"
	"sync/atomic"
	"time"
)

const usePolling = true

// lockImpl is a plain sync.Mutex. It has no bounded wait of its own, so
// timed operations retry a non-blocking attempt once per LockPollQuantum.
type lockImpl struct {
	mu   sync.Mutex
	held atomic.Bool // mirrors mu's state so unlock can refuse an unlocked mutex
}

func (l *lockImpl) lock() {
	l.mu.Lock()
	l.held.Store(true)
}

func (l *lockImpl) tryLock() bool {
	if !l.mu.TryLock() {
		return false
	}
	l.held.Store(true)
	return true
}

func (l *lockImpl) timedLock(d time.Duration) bool {
	return pollUntil(deadline(d), l.tryLock)
}

func (l *lockImpl) unlock() bool {
	if !l.held.CompareAndSwap(true, false) {
		return false
	}
	l.mu.Unlock()
	return true
}

func (l *lockImpl) locked() bool {
	return l.held.Load()
}

func waitWake(wake <-chan struct{}, d time.Duration) bool {
	return pollUntil(deadline(d), func() bool {
		select {
		case <-wake:
			return true
		default:
			return false
		}
	})
}

// pollUntil calls try until it succeeds or dl passes, sleeping a full
// quantum between attempts. The final attempt happens after dl, so the
// call can return up to one quantum late.
func pollUntil(dl time.Time, try func() bool) bool {
	if try() {
		return true
	}
	q := LockPollQuantum()
	for {
		if remaining(dl) == 0 {
			return false
		}
		time.Sleep(q)
		if try() {
			return true
		}
	}
}
