// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestEventZeroValue(t *testing.T) {
	c := qt.New(t)
	var e Event
	c.Check(e.Mode(), qt.Equals, AutoReset)
	c.Check(e.IsSet(), qt.IsFalse)
	ok, err := e.TimedWait(0)
	c.Check(err, qt.IsNil)
	c.Check(ok, qt.IsFalse)

	e.Set()
	ok, err = e.TimedWait(0)
	c.Check(err, qt.IsNil)
	c.Check(ok, qt.IsTrue)
	c.Check(e.IsSet(), qt.IsFalse, qt.Commentf("auto-reset event still set after a wait"))
}

func TestEventModeString(t *testing.T) {
	c := qt.New(t)
	c.Check(AutoReset.String(), qt.Equals, "auto-reset")
	c.Check(ManualReset.String(), qt.Equals, "manual-reset")
	c.Check(EventMode(5).String(), qt.Equals, "EventMode(5)")
}

func TestEventInitiallySignaled(t *testing.T) {
	c := qt.New(t)
	e := NewEvent(AutoReset, true)
	c.Check(e.IsSet(), qt.IsTrue)
	c.Check(e.Wait(), qt.IsNil)
	c.Check(e.IsSet(), qt.IsFalse)
}

func TestEventManualReset(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		e := NewEvent(ManualReset, false)
		var released atomic.Int32
		var wg sync.WaitGroup
		for range 4 {
			wg.Go(func() {
				if err := e.Wait(); err != nil {
					t.Error(err)
				}
				released.Add(1)
			})
		}
		settle()
		if got := released.Load(); got != 0 {
			t.Fatalf("%d waiters released before Set", got)
		}
		e.Set()
		wg.Wait()
		if got := released.Load(); got != 4 {
			t.Fatalf("%d waiters released by Set, want 4", got)
		}

		// Still set for later waiters until Reset.
		if ok, _ := e.TimedWait(0); !ok {
			t.Error("manual-reset event not set after releasing waiters")
		}
		e.Reset()
		if e.IsSet() {
			t.Error("IsSet after Reset")
		}
		if ok, _ := e.TimedWait(10 * time.Millisecond); ok {
			t.Error("TimedWait after Reset = true")
		}
	})
}

func TestEventAutoResetReleasesOne(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		const waiters = 4
		e := NewEvent(AutoReset, false)
		var released atomic.Int32
		var wg sync.WaitGroup
		for range waiters {
			wg.Go(func() {
				if err := e.Wait(); err != nil {
					t.Error(err)
				}
				released.Add(1)
			})
		}
		settle()

		e.Set()
		settle()
		if got := released.Load(); got != 1 {
			t.Fatalf("one Set released %d waiters, want 1", got)
		}
		if e.IsSet() {
			t.Error("auto-reset event still set after releasing a waiter")
		}

		for i := 2; i <= waiters; i++ {
			e.Set()
			settle()
			if got := released.Load(); got != int32(i) {
				t.Fatalf("after %d Sets, %d waiters released", i, got)
			}
		}
		wg.Wait()
	})
}

func TestEventTimedWaitTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var e Event
		start := time.Now()
		ok, err := e.TimedWait(40 * time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Fatal("TimedWait on unset event = true")
		}
		checkElapsed(t, time.Since(start), 40*time.Millisecond, 0)
	})
}

func TestEventSetDuringTimedWait(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var e Event
		go func() {
			time.Sleep(25 * time.Millisecond)
			e.Set()
		}()
		start := time.Now()
		ok, err := e.TimedWait(time.Second)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("TimedWait missed a Set")
		}
		checkElapsed(t, time.Since(start), 25*time.Millisecond, 0)
	})
}

func TestEventRelease(t *testing.T) {
	c := qt.New(t)

	auto := NewEvent(AutoReset, false)
	c.Check(auto.release(), qt.IsNil)
	c.Check(auto.IsSet(), qt.IsTrue)

	manual := NewEvent(ManualReset, false)
	c.Check(manual.release(), qt.IsNil)
	c.Check(manual.IsSet(), qt.IsFalse, qt.Commentf("release of a manual-reset event changed it"))
}
