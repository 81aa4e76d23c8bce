// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/tailscale/threadutil/syncs"
	"golang.org/x/sync/errgroup"
)

var eventArgs struct {
	waiters int
	mode    string
	timeout time.Duration
	settle  time.Duration
}

func eventCmd() *ffcli.Command {
	fs := newFlagSet("event")
	fs.IntVar(&eventArgs.waiters, "waiters", 4, "number of waiting threads")
	fs.StringVar(&eventArgs.mode, "mode", "auto", `event mode: "auto" or "manual"`)
	fs.DurationVar(&eventArgs.timeout, "timeout", 200*time.Millisecond, "how long each waiter waits")
	fs.DurationVar(&eventArgs.settle, "settle", 20*time.Millisecond, "delay before the single Set")
	return &ffcli.Command{
		Name:       "event",
		ShortUsage: "syncdemo event [-waiters N] [-mode auto|manual]",
		ShortHelp:  "Set an Event once with several threads waiting and count releases",
		FlagSet:    fs,
		Exec:       runEvent,
	}
}

func parseMode(s string) (syncs.EventMode, error) {
	switch s {
	case "auto":
		return syncs.AutoReset, nil
	case "manual":
		return syncs.ManualReset, nil
	}
	return 0, fmt.Errorf("unknown event mode %q; want auto or manual", s)
}

func runEvent(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return flag.ErrHelp
	}
	mode, err := parseMode(eventArgs.mode)
	if err != nil {
		return err
	}
	ev := syncs.NewEvent(mode, false)
	timeout := eventArgs.timeout

	waiter := syncs.RunnerFunc(func() uint32 {
		res, err := syncs.WaitOne(ev, timeout)
		if err != nil {
			logf("event: wait: %v", err)
			return 2
		}
		if res == syncs.Signaled {
			return 1
		}
		return 0
	})

	threads := make([]*syncs.Thread, eventArgs.waiters)
	for i := range threads {
		th, err := syncs.Go(waiter, syncs.WithName(fmt.Sprintf("waiter-%d", i)), syncs.WithLogf(logf))
		if err != nil {
			return err
		}
		threads[i] = th
	}
	time.Sleep(eventArgs.settle)
	ev.Set()

	released := make([]uint32, len(threads))
	var g errgroup.Group
	for i, th := range threads {
		g.Go(func() error {
			status, err := th.Join()
			released[i] = status
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	n := 0
	for _, s := range released {
		switch s {
		case 1:
			n++
		case 2:
			return errors.New("a waiter failed")
		}
	}
	outf("mode=%v waiters=%d released=%d\n", mode, len(threads), n)
	return nil
}
