// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import "golang.org/x/sys/windows"

// currentThreadID returns the Win32 thread ID of the calling OS thread.
// It is only stable for a goroutine that has called runtime.LockOSThread.
func currentThreadID() int {
	return int(windows.GetCurrentThreadId())
}
