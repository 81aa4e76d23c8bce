// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package logger defines the printf-style logging func type used across
// this module, and wrappers around it.
package logger

import (
	"container/list"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tailscale/threadutil/envknob"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Logf is the basic logger type: a printf-like func.
// Like log.Printf, the format need not end in a newline.
// Logf functions must be safe for concurrent use.
//
// Functions that wrap logger functions must pass through the original
// format and args, possibly augmented. Replacing them (e.g. with
// fmt.Sprintf and %s) defeats rate limiting, which is keyed by format.
type Logf func(format string, args ...any)

// WithPrefix wraps f, prefixing each format with the provided prefix.
func WithPrefix(f Logf, prefix string) Logf {
	return func(format string, args ...any) {
		f(prefix+format, args...)
	}
}

// Discard is a Logf that throws away the logs given to it.
func Discard(string, ...any) {}

// FuncWriter returns an io.Writer that writes to f.
func FuncWriter(f Logf) io.Writer {
	return funcWriter{f}
}

type funcWriter struct{ f Logf }

func (w funcWriter) Write(p []byte) (int, error) {
	w.f("%s", p)
	return len(p), nil
}

// StdLogger returns a standard library logger from a Logf.
// Everything it logs shares the single format "%s", so it shouldn't be
// wrapped in RateLimitedFn.
func StdLogger(f Logf) *log.Logger {
	return log.New(FuncWriter(f), "", 0)
}

// FromZap returns a Logf that logs at info level to s.
func FromZap(s *zap.SugaredLogger) Logf {
	return func(format string, args ...any) {
		s.Infof(strings.TrimSuffix(format, "\n"), args...)
	}
}

var disableRateLimit = envknob.RegisterBool("TS_DEBUG_LOG_RATE_ALL")

// limitData is the rate-limiting state of one format string.
type limitData struct {
	lim     *rate.Limiter
	blocked bool          // whether the "rate limited" notice was already logged
	ele     *list.Element // position in the LRU
}

// RateLimitedFn returns a Logf wrapping logf that lets each distinct format
// string through at most once every interval, in bursts of up to burst.
// At most maxCache format strings are tracked at once, least recently used
// first out.
//
// The first suppressed message of a format is replaced by a single notice;
// the rest are dropped until the format is allowed again.
func RateLimitedFn(logf Logf, interval time.Duration, burst int, maxCache int) Logf {
	if disableRateLimit() {
		return logf
	}
	r := rate.Every(interval)
	var (
		mu    sync.Mutex
		lims  = make(map[string]*limitData) // keyed by format
		cache = list.New()                  // of formats, most recent first
	)

	type verdict int
	const (
		allow verdict = iota
		warn
		block
	)

	judge := func(format string) verdict {
		mu.Lock()
		defer mu.Unlock()
		ld, ok := lims[format]
		if ok {
			cache.MoveToFront(ld.ele)
		} else {
			ld = &limitData{
				lim: rate.NewLimiter(r, burst),
				ele: cache.PushFront(format),
			}
			lims[format] = ld
			if cache.Len() > maxCache {
				oldest := cache.Back()
				delete(lims, oldest.Value.(string))
				cache.Remove(oldest)
			}
		}
		if ld.lim.Allow() {
			ld.blocked = false
			return allow
		}
		if !ld.blocked {
			ld.blocked = true
			return warn
		}
		return block
	}

	return func(format string, args ...any) {
		switch judge(format) {
		case allow:
			logf(format, args...)
		case warn:
			logf("[RATE LIMITED] format string %q (example: %q)", format, strings.TrimSpace(fmt.Sprintf(format, args...)))
		}
	}
}
