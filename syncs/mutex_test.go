// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/creachadair/taskgroup"
)

func TestMutexTryLock(t *testing.T) {
	var mu Mutex
	if mu.Locked() {
		t.Fatal("zero Mutex is locked")
	}
	if !mu.TryLock() {
		t.Fatal("TryLock on unlocked Mutex = false")
	}
	if mu.TryLock() {
		t.Error("TryLock on locked Mutex = true")
	}
	if mu.TimedLock(0) {
		t.Error("TimedLock(0) on locked Mutex = true")
	}
	if mu.TimedLock(-time.Second) {
		t.Error("TimedLock(-1s) on locked Mutex = true")
	}
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !mu.TimedLock(0) {
		t.Error("TimedLock(0) on unlocked Mutex = false")
	}
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestMutexUnlockUnlocked(t *testing.T) {
	mu := NewMutex()
	err := mu.Unlock()
	if !errors.Is(err, ErrOperation) {
		t.Fatalf("Unlock of unlocked Mutex = %v, want an OperationFailure", err)
	}
	// It must still be usable.
	mu.Lock()
	if err := mu.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestMutexExclusion(t *testing.T) {
	const (
		workers = 8
		iters   = 500
	)
	var (
		mu      Mutex
		inside  atomic.Int32
		maxSeen atomic.Int32
		total   int // guarded by mu
	)
	var g taskgroup.Group
	for range workers {
		g.Go(func() error {
			for i := range iters {
				switch i % 3 {
				case 0:
					mu.Lock()
				case 1:
					for !mu.TryLock() {
					}
				case 2:
					for !mu.TimedLock(time.Millisecond) {
					}
				}
				n := inside.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				total++
				inside.Add(-1)
				if err := mu.Unlock(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := maxSeen.Load(); got != 1 {
		t.Errorf("max goroutines in critical section = %d, want 1", got)
	}
	if total != workers*iters {
		t.Errorf("total = %d, want %d", total, workers*iters)
	}
}

func TestMutexTimedLockTimesOut(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var mu Mutex
		mu.Lock()
		start := time.Now()
		if mu.TimedLock(50 * time.Millisecond) {
			t.Fatal("TimedLock on held Mutex = true")
		}
		checkElapsed(t, time.Since(start), 50*time.Millisecond, 0)
		if err := mu.Unlock(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestMutexTimedLockAcquires(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var mu Mutex
		mu.Lock()
		go func() {
			time.Sleep(20 * time.Millisecond)
			mu.Unlock()
		}()
		start := time.Now()
		timeout := 50 * time.Millisecond
		if usePolling {
			// The first retry comes a full quantum after the first try.
			timeout = LockPollQuantum()
		}
		if !mu.TimedLock(timeout) {
			t.Fatal("TimedLock = false, want true once released")
		}
		elapsed := time.Since(start)
		if elapsed < 20*time.Millisecond || elapsed > timeout+slack() {
			t.Errorf("acquired after %v, want in [20ms, %v]", elapsed, timeout+slack())
		}
		if !mu.Locked() {
			t.Error("Mutex not locked after successful TimedLock")
		}
		mu.Unlock()
	})
}

func TestMutexInfinite(t *testing.T) {
	if usePolling {
		t.Skip("a goroutine blocked in sync.Mutex.Lock does not let fake time advance")
	}
	synctest.Test(t, func(t *testing.T) {
		var mu Mutex
		mu.Lock()
		go func() {
			time.Sleep(time.Hour)
			mu.Unlock()
		}()
		if !mu.TimedLock(Infinite) {
			t.Fatal("TimedLock(Infinite) = false")
		}
		mu.Unlock()
	})
}

func TestMutexWaitable(t *testing.T) {
	var mu Mutex
	var w Waitable = &mu
	if ok, err := w.TimedWait(0); !ok || err != nil {
		t.Fatalf("TimedWait(0) = %v, %v; want true, nil", ok, err)
	}
	if !mu.Locked() {
		t.Fatal("satisfied wait did not take the lock")
	}
	if ok, _ := w.TimedWait(0); ok {
		t.Error("TimedWait(0) on held Mutex = true")
	}
	mu.Unlock()
	if err := w.Wait(); err != nil {
		t.Fatal(err)
	}
	mu.Unlock()
}

func BenchmarkMutexLockUnlock(b *testing.B) {
	var mu Mutex
	for b.Loop() {
		mu.Lock()
		mu.Unlock()
	}
}
