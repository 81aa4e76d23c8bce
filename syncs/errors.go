// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an [Error].
type ErrorKind int

const (
	// ConstructionFailure means a primitive or thread could not be created.
	// Nothing was started and nothing needs to be released.
	ConstructionFailure ErrorKind = iota + 1

	// OperationFailure means a lock, unlock, signal or wait failed for a
	// reason other than a timeout. The primitive's state is unknown to the
	// caller afterwards.
	OperationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ConstructionFailure:
		return "construction failure"
	case OperationFailure:
		return "operation failure"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	// ErrConstruction matches, with errors.Is, any *Error of kind
	// ConstructionFailure.
	ErrConstruction = errors.New("syncs: construction failure")

	// ErrOperation matches, with errors.Is, any *Error of kind
	// OperationFailure.
	ErrOperation = errors.New("syncs: operation failure")
)

var (
	errNotLocked      = errors.New("mutex is not locked")
	errNilMutex       = errors.New("nil mutex")
	errNilRunner      = errors.New("nil runner")
	errStarted        = errors.New("thread already started")
	errNotStarted     = errors.New("thread not started")
	errTooManyThreads = errors.New("too many live threads")
	errNoObjects      = errors.New("no objects to wait on")
	errNilObject      = errors.New("nil object")
)

// Error is the error type returned by this package's primitives.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "Mutex.Unlock"
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	return fmt.Sprintf("syncs: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConstruction:
		return e.Kind == ConstructionFailure
	case ErrOperation:
		return e.Kind == OperationFailure
	}
	return false
}

func constructionError(op string, err error) error {
	return &Error{Kind: ConstructionFailure, Op: op, Err: err}
}

func operationError(op string, err error) error {
	return &Error{Kind: OperationFailure, Op: op, Err: err}
}
