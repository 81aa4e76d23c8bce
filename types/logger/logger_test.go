// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFuncWriter(t *testing.T) {
	w := FuncWriter(t.Logf)
	lg := log.New(w, "prefix: ", 0)
	lg.Printf("plumbed through")
}

func TestStdLogger(t *testing.T) {
	lg := StdLogger(t.Logf)
	lg.Printf("plumbed through")
}

func TestWithPrefix(t *testing.T) {
	var got []string
	logf := WithPrefix(func(format string, args ...any) {
		got = append(got, fmt.Sprintf(format, args...))
	}, "syncs: ")
	logf("thread %d started", 7)
	if want := []string{"syncs: thread 7 started"}; !cmp.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRateLimiter(t *testing.T) {
	var got []string
	logf := func(format string, args ...any) {
		got = append(got, fmt.Sprintf(format, args...))
	}

	// A long interval means nothing refills during the test.
	lg := RateLimitedFn(logf, time.Hour, 2, 50)
	for i := range 5 {
		lg("thread %d exited", i)
		lg("constant message")
	}
	want := []string{
		"thread 0 exited",
		"constant message",
		"thread 1 exited",
		"constant message",
		`[RATE LIMITED] format string "thread %d exited" (example: "thread 2 exited")`,
		`[RATE LIMITED] format string "constant message" (example: "constant message")`,
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("rate limited output mismatch (-want +got):\n%s", d)
	}
}

func TestRateLimiterEvictsOldest(t *testing.T) {
	var n int
	lg := RateLimitedFn(func(string, ...any) { n++ }, time.Hour, 1, 1)
	lg("a")
	lg("b") // evicts "a"
	lg("a") // fresh limiter for "a"
	if n != 3 {
		t.Errorf("logged %d lines, want 3", n)
	}
}

func TestFromZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logf := FromZap(zap.New(core).Sugar())
	logf("thread %q exited with status %d\n", "worker", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if got, want := entries[0].Message, `thread "worker" exited with status 3`; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if strings.HasSuffix(entries[0].Message, "\n") {
		t.Errorf("trailing newline not trimmed")
	}
}
