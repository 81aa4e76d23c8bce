// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !ts_syncs_poll

package syncs

import (
	"sync"
	"time"
)

// usePolling reports whether the polling backend is compiled in.
const usePolling = false

// lockImpl is a channel-guard lock. Holding the lock means holding the
// single token slot of guard, so a bounded wait is a select with a timer.
type lockImpl struct {
	once  sync.Once
	guard chan struct{} // len 1 while locked
}

func (l *lockImpl) ch() chan struct{} {
	l.once.Do(func() {
		l.guard = make(chan struct{}, 1)
	})
	return l.guard
}

func (l *lockImpl) lock() {
	l.ch() <- struct{}{}
}

func (l *lockImpl) tryLock() bool {
	select {
	case l.ch() <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *lockImpl) timedLock(d time.Duration) bool {
	if l.tryLock() {
		return true
	}
	tc, stop := timer(d)
	defer stop()
	select {
	case l.ch() <- struct{}{}:
		return true
	case <-tc:
		return false
	}
}

func (l *lockImpl) unlock() bool {
	select {
	case <-l.ch():
		return true
	default:
		return false
	}
}

func (l *lockImpl) locked() bool {
	return len(l.ch()) == 1
}

// waitWake waits up to d for wake to be closed and reports whether it was.
func waitWake(wake <-chan struct{}, d time.Duration) bool {
	select {
	case <-wake:
		return true
	default:
	}
	if d <= 0 {
		return false
	}
	tc, stop := timer(d)
	defer stop()
	select {
	case <-wake:
		return true
	case <-tc:
		return false
	}
}
