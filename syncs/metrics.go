// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import "github.com/tailscale/threadutil/metrics"

type waitLabel struct {
	Kind   string // mutex, event, thread, many_any, many_all, other
	Result string // a WaitResult
}

type threadLabel struct {
	Event string // started, exited, panicked, rejected
}

var (
	waitOutcomes = metrics.NewLabelMap[waitLabel]("syncs_waits",
		"Outcomes of WaitOne and WaitMany calls.")
	threadEvents = metrics.NewLabelMap[threadLabel]("syncs_threads",
		"Thread lifecycle events.")
)

func waitKind(w Waitable) string {
	switch w.(type) {
	case *Mutex:
		return "mutex"
	case *Event:
		return "event"
	case *Thread:
		return "thread"
	}
	return "other"
}

func countWait(kind string, res WaitResult) {
	waitOutcomes.Add(waitLabel{Kind: kind, Result: res.String()}, 1)
}
