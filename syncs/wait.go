// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"fmt"
	"time"
)

// WaitOne waits up to timeout for w to be satisfied.
func WaitOne(w Waitable, timeout time.Duration) (WaitResult, error) {
	res, err := waitOne(w, timeout)
	countWait(waitKind(w), res)
	return res, err
}

func waitOne(w Waitable, timeout time.Duration) (WaitResult, error) {
	if w == nil {
		return Failed, operationError("WaitOne", errNilObject)
	}
	ok, err := w.TimedWait(timeout)
	switch {
	case err != nil:
		return Failed, err
	case ok:
		return Signaled, nil
	}
	return TimedOut, nil
}

// releaser is implemented by Waitables whose satisfaction changes their
// state, so that WaitMany can undo a wait-all that didn't complete.
type releaser interface {
	release() error
}

// WaitMany waits up to timeout for any (waitAll false) or all (waitAll
// true) of objs to be satisfied.
//
// With wait-any, it returns the index of the satisfied object; if several
// are ready in the same scan, the lowest index wins and the others are
// left untouched. With wait-all, it returns the index of the object that
// completed the set. On timeout the index is -1 and the result TimedOut;
// a wait-all never times out before the deadline has passed.
//
// WaitMany polls: each scan probes every object not yet satisfied with a
// zero-length wait, then sleeps for MultiWaitQuantum. Expect up to one
// quantum of latency, and CPU use that grows with len(objs) divided by the
// quantum. Once an object is seen satisfied it stays counted for the rest
// of the call, so an auto-reset Event is consumed at most once. Signals
// that come and go entirely between two scans, such as an auto-reset Event
// set and consumed by another waiter, are not seen.
//
// When a wait-all times out or fails, the objects it already took are put
// back: mutexes it acquired are unlocked and auto-reset events it consumed
// are set again.
func WaitMany(objs []Waitable, waitAll bool, timeout time.Duration) (int, WaitResult, error) {
	i, res, err := waitMany(objs, waitAll, timeout)
	kind := "many_any"
	if waitAll {
		kind = "many_all"
	}
	countWait(kind, res)
	return i, res, err
}

func waitMany(objs []Waitable, waitAll bool, timeout time.Duration) (int, WaitResult, error) {
	if len(objs) == 0 {
		return -1, Failed, operationError("WaitMany", errNoObjects)
	}
	dl := deadline(timeout)
	q := MultiWaitQuantum()
	satisfied := make([]bool, len(objs))
	pending := len(objs)
	last := -1
	for {
		for i, w := range objs {
			if satisfied[i] {
				continue
			}
			ok, err := w.TimedWait(0)
			if err != nil {
				err = operationError("WaitMany", fmt.Errorf("object %d: %w", i, err))
				if waitAll {
					err = putBack(objs, satisfied, err)
				}
				return i, Failed, err
			}
			if !ok {
				continue
			}
			if !waitAll {
				return i, Signaled, nil
			}
			satisfied[i] = true
			pending--
			last = i
		}
		if pending == 0 {
			return last, Signaled, nil
		}
		left := remaining(dl)
		if left == 0 {
			if waitAll {
				if err := putBack(objs, satisfied, nil); err != nil {
					return -1, Failed, err
				}
			}
			return -1, TimedOut, nil
		}
		time.Sleep(min(q, left))
	}
}

// putBack releases the satisfied objects of an incomplete wait-all. It
// returns err, or if err is nil, the first release failure.
func putBack(objs []Waitable, satisfied []bool, err error) error {
	for i, ok := range satisfied {
		if !ok {
			continue
		}
		r, canRelease := objs[i].(releaser)
		if !canRelease {
			continue
		}
		if rerr := r.release(); rerr != nil && err == nil {
			err = operationError("WaitMany", fmt.Errorf("releasing object %d: %w", i, rerr))
		}
	}
	return err
}
