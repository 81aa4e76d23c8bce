// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailscale/threadutil/types/logger"
	"golang.org/x/sync/semaphore"
)

// Runner is a unit of work for a [Thread]. Run's return value is the
// thread's exit status.
type Runner interface {
	Run() uint32
}

// RunnerFunc adapts a func to a [Runner]. Arguments are bound by closing
// over them.
type RunnerFunc func() uint32

// Run calls f.
func (f RunnerFunc) Run() uint32 { return f() }

// ThreadOption configures a Thread in NewThread.
type ThreadOption func(*Thread)

// WithLogf sets the logger for thread lifecycle messages.
// By default nothing is logged unless TS_DEBUG_SYNCS is set.
func WithLogf(logf logger.Logf) ThreadOption {
	return func(t *Thread) { t.logf = logf }
}

// WithName names the thread in log messages.
func WithName(name string) ThreadOption {
	return func(t *Thread) { t.name = name }
}

var errJoinSelf = errors.New("thread cannot join itself")

// threadSlots bounds the number of live Threads. It's a var for tests.
var threadSlots = sync.OnceValue(func() *semaphore.Weighted {
	return semaphore.NewWeighted(int64(MaxThreads()))
})

// Thread runs a [Runner] on a dedicated OS thread.
//
// A Thread is a [Waitable] that is satisfied once Run has returned.
// Waiting does not join it; Join (or Close) must still be called, and
// Close must be called before a Thread is dropped if it may be running.
type Thread struct {
	r    Runner
	name string
	logf logger.Logf

	done   chan struct{} // closed when Run returns
	id     atomic.Int64  // OS thread id; 0 until started
	status uint32        // valid once done is closed
	err    error         // non-nil if Run panicked; valid once done is closed

	mu      sync.Mutex
	started bool
	joined  bool
}

// NewThread returns an unstarted Thread that will run r.
// A nil r is a ConstructionFailure.
func NewThread(r Runner, opts ...ThreadOption) (*Thread, error) {
	if r == nil {
		return nil, constructionError("NewThread", errNilRunner)
	}
	t := &Thread{
		r:    r,
		done: make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	if t.logf == nil {
		if debugSyncs() {
			t.logf = log.Printf
		} else {
			t.logf = logger.Discard
		}
	}
	if t.name == "" {
		t.name = fmt.Sprintf("%T", r)
	}
	return t, nil
}

// Go is NewThread followed by Start.
func Go(r Runner, opts ...ThreadOption) (*Thread, error) {
	t, err := NewThread(r, opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Start(); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

// Start launches the thread. It returns once the thread is running and
// its ID is known.
//
// Starting a Thread twice is an OperationFailure. If MaxThreads threads
// are already live, Start returns a ConstructionFailure and nothing runs.
func (t *Thread) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return operationError("Thread.Start", errStarted)
	}
	slots := threadSlots()
	if !slots.TryAcquire(1) {
		threadEvents.Add(threadLabel{Event: "rejected"}, 1)
		return constructionError("Thread.Start", fmt.Errorf("%w (limit %d)", errTooManyThreads, MaxThreads()))
	}
	t.started = true
	ready := make(chan struct{})
	go t.run(slots, ready)
	<-ready
	threadEvents.Add(threadLabel{Event: "started"}, 1)
	t.logf("syncs: thread %q started on OS thread %d", t.name, t.ID())
	return nil
}

func (t *Thread) run(slots *semaphore.Weighted, ready chan<- struct{}) {
	// Never unlocked: the OS thread exits with this goroutine rather than
	// going back to the scheduler.
	runtime.LockOSThread()
	id := currentThreadID()
	t.id.Store(int64(id))
	liveThreads.store(id, t)
	close(ready)

	defer func() {
		liveThreads.delete(id, t)
		slots.Release(1)
		close(t.done)
	}()
	t.status, t.err = t.invoke()
	if t.err != nil {
		threadEvents.Add(threadLabel{Event: "panicked"}, 1)
		t.logf("syncs: thread %q: %v", t.name, t.err)
		return
	}
	threadEvents.Add(threadLabel{Event: "exited"}, 1)
	t.logf("syncs: thread %q exited with status %d", t.name, t.status)
}

func (t *Thread) invoke() (status uint32, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = operationError("Thread.Run", fmt.Errorf("panic: %v", p))
		}
	}()
	return t.r.Run(), nil
}

// ID returns the OS thread ID the thread runs on, or 0 if it hasn't been
// started. On platforms without an accessible thread ID it is a
// process-unique substitute.
func (t *Thread) ID() int {
	return int(t.id.Load())
}

// IsCurrent reports whether the caller is running on t.
func (t *Thread) IsCurrent() bool {
	id := t.ID()
	return id != 0 && id == currentThreadID()
}

// Equal reports whether t and o run on the same OS thread.
// Unstarted threads are equal to nothing.
func (t *Thread) Equal(o *Thread) bool {
	if t == nil || o == nil {
		return false
	}
	id := t.ID()
	return id != 0 && id == o.ID()
}

// Join waits for Run to return and returns its status. If Run panicked,
// the error is an OperationFailure describing the panic.
//
// Joining again returns the same result. Joining an unstarted Thread, or
// joining a Thread from itself, is an OperationFailure.
func (t *Thread) Join() (uint32, error) {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return 0, operationError("Thread.Join", errNotStarted)
	}
	if t.IsCurrent() {
		return 0, operationError("Thread.Join", errJoinSelf)
	}
	<-t.done
	t.mu.Lock()
	t.joined = true
	t.mu.Unlock()
	return t.status, t.err
}

// Joinable reports whether t has been started and not yet joined.
func (t *Thread) Joinable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.joined
}

// Close joins t if it is joinable, blocking until Run returns, so that
// nothing Run uses is released while it still runs. It returns Join's
// error, if any. Closing an unstarted or joined Thread does nothing.
func (t *Thread) Close() error {
	if !t.Joinable() {
		return nil
	}
	select {
	case <-t.done:
	default:
		t.logf("syncs: thread %q still running at Close; joining", t.name)
	}
	_, err := t.Join()
	return err
}

// Done returns a channel that is closed when Run returns.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Status returns Run's return value and whether Run has returned.
func (t *Thread) Status() (status uint32, ok bool) {
	select {
	case <-t.done:
		return t.status, true
	default:
		return 0, false
	}
}

// Wait blocks until Run has returned. It implements [Waitable]. Waiting
// on an unstarted Thread blocks until it is started and finishes.
func (t *Thread) Wait() error {
	if t.IsCurrent() {
		return operationError("Thread.Wait", errJoinSelf)
	}
	<-t.done
	return nil
}

// TimedWait reports whether Run returns within timeout. It implements
// [Waitable].
func (t *Thread) TimedWait(timeout time.Duration) (bool, error) {
	select {
	case <-t.done:
		return true, nil
	default:
	}
	if timeout <= 0 {
		return false, nil
	}
	if t.IsCurrent() {
		return false, operationError("Thread.TimedWait", errJoinSelf)
	}
	tc, stop := timer(timeout)
	defer stop()
	select {
	case <-t.done:
		return true, nil
	case <-tc:
		return false, nil
	}
}

// CurrentThread returns the Thread the caller is running on, or nil if
// the caller isn't running inside a Thread started by this package.
func CurrentThread() *Thread {
	return liveThreads.load(currentThreadID())
}
