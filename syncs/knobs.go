// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"time"

	"github.com/tailscale/threadutil/envknob"
)

const (
	// DefaultLockPollQuantum is the default LockPollQuantum.
	DefaultLockPollQuantum = 100 * time.Millisecond

	// DefaultMultiWaitQuantum is the default MultiWaitQuantum.
	DefaultMultiWaitQuantum = time.Millisecond

	// DefaultMaxThreads is the default MaxThreads.
	DefaultMaxThreads = 4096
)

var (
	lockPollQuantumKnob  = envknob.RegisterDuration("TS_SYNCS_LOCK_POLL_QUANTUM")
	multiWaitQuantumKnob = envknob.RegisterDuration("TS_SYNCS_MULTIWAIT_QUANTUM")
	maxThreadsKnob       = envknob.RegisterInt("TS_SYNCS_MAX_THREADS")
	debugSyncs           = envknob.RegisterBool("TS_DEBUG_SYNCS")
)

// LockPollQuantum returns the interval between lock attempts of a timed
// lock or timed condition wait under the polling backend (ts_syncs_poll).
// A bounded wait there may return up to one quantum after its timeout.
//
// It is DefaultLockPollQuantum unless TS_SYNCS_LOCK_POLL_QUANTUM is set.
func LockPollQuantum() time.Duration {
	if d := lockPollQuantumKnob(); d > 0 {
		return d
	}
	return DefaultLockPollQuantum
}

// MultiWaitQuantum returns the interval between scans in [WaitMany].
//
// It is DefaultMultiWaitQuantum unless TS_SYNCS_MULTIWAIT_QUANTUM is set.
func MultiWaitQuantum() time.Duration {
	if d := multiWaitQuantumKnob(); d > 0 {
		return d
	}
	return DefaultMultiWaitQuantum
}

// MaxThreads returns how many started, not yet finished [Thread]s may
// exist at once. Each holds an OS thread for its whole life, and the Go
// runtime aborts the process outright when it runs out of OS threads, so
// Start refuses to go past this limit instead.
//
// It is DefaultMaxThreads unless TS_SYNCS_MAX_THREADS is set.
func MaxThreads() int {
	if n := maxThreadsKnob(); n > 0 {
		return n
	}
	return DefaultMaxThreads
}
