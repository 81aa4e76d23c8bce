// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux && !windows

package syncs

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThreadID returns the calling goroutine's ID.
//
// There's no portable way to name the OS thread here. A Thread's goroutine
// is locked to its OS thread for its whole life and no other goroutine
// runs there, so the goroutine ID identifies the thread just as well.
func currentThreadID() int {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b, _ = bytes.CutPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.Atoi(string(b))
	if err != nil {
		panic("syncs: can't parse goroutine ID: " + err.Error())
	}
	return id
}
