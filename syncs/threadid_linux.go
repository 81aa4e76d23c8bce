// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread ID of the calling OS thread.
// It is only stable for a goroutine that has called runtime.LockOSThread.
func currentThreadID() int {
	return unix.Gettid()
}
