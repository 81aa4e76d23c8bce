// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestScopedLock(t *testing.T) {
	c := qt.New(t)
	var mu Mutex
	func() {
		lk := Lock(&mu)
		defer lk.Unlock()
		c.Check(lk.Held(), qt.IsTrue)
		c.Check(mu.Locked(), qt.IsTrue)
	}()
	c.Check(mu.Locked(), qt.IsFalse)
}

func TestScopedLockEarlyUnlock(t *testing.T) {
	c := qt.New(t)
	var mu Mutex
	lk := Lock(&mu)
	lk.Unlock()
	c.Check(lk.Held(), qt.IsFalse)
	c.Check(mu.Locked(), qt.IsFalse)

	// Someone else takes the mutex; the deferred Unlock must not release it.
	mu.Lock()
	lk.Unlock()
	c.Check(mu.Locked(), qt.IsTrue)
	mu.Unlock()
}

func TestScopedLockReleasesOnPanic(t *testing.T) {
	c := qt.New(t)
	var mu Mutex
	c.Check(func() {
		defer Lock(&mu).Unlock()
		panic("boom")
	}, qt.PanicMatches, "boom")
	c.Check(mu.Locked(), qt.IsFalse)
}

func TestScopedLockPanics(t *testing.T) {
	c := qt.New(t)
	c.Check(func() { Lock(nil) }, qt.PanicMatches, "syncs: Lock of nil Mutex")

	var mu Mutex
	lk := Lock(&mu)
	mu.Unlock()
	defer func() {
		err, _ := recover().(error)
		c.Check(err, qt.ErrorIs, ErrOperation)
	}()
	lk.Unlock()
	t.Error("Unlock of a mutex released behind the ScopedLock's back did not panic")
}

func TestWithLock(t *testing.T) {
	c := qt.New(t)
	var mu Mutex
	errBoom := errors.New("boom")

	err := WithLock(&mu, func() error {
		c.Check(mu.Locked(), qt.IsTrue)
		return errBoom
	})
	c.Check(err, qt.ErrorIs, errBoom)
	c.Check(mu.Locked(), qt.IsFalse)

	// fn unlocking behind WithLock's back surfaces as an OperationFailure.
	err = WithLock(&mu, func() error {
		return mu.Unlock()
	})
	c.Check(err, qt.ErrorIs, ErrOperation)

	c.Check(WithLock(nil, func() error { return nil }), qt.ErrorIs, ErrOperation)
}
