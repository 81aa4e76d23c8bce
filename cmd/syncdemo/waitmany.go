// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/tailscale/threadutil/syncs"
	"golang.org/x/sync/errgroup"
)

var waitManyArgs struct {
	all     bool
	timeout time.Duration
	delays  string
}

func waitManyCmd() *ffcli.Command {
	fs := newFlagSet("waitmany")
	fs.BoolVar(&waitManyArgs.all, "all", false, "wait for all events instead of any")
	fs.DurationVar(&waitManyArgs.timeout, "timeout", time.Second, "overall timeout")
	fs.StringVar(&waitManyArgs.delays, "delays", "10ms,50ms,100ms", "comma-separated delays after which each event is set; empty entries are never set")
	return &ffcli.Command{
		Name:       "waitmany",
		ShortUsage: "syncdemo waitmany [-all] [-timeout D] [-delays D1,D2,...]",
		ShortHelp:  "Wait on several events, each set by its own thread",
		FlagSet:    fs,
		Exec:       runWaitMany,
	}
}

// parseDelays parses a comma-separated duration list. An empty entry
// yields a negative duration, meaning the event is never set.
func parseDelays(s string) ([]time.Duration, error) {
	var ds []time.Duration
	for f := range strings.SplitSeq(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			ds = append(ds, -1)
			continue
		}
		d, err := time.ParseDuration(f)
		if err != nil {
			return nil, fmt.Errorf("bad delay %q: %w", f, err)
		}
		ds = append(ds, d)
	}
	return ds, nil
}

func runWaitMany(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return flag.ErrHelp
	}
	delays, err := parseDelays(waitManyArgs.delays)
	if err != nil {
		return err
	}

	objs := make([]syncs.Waitable, len(delays))
	var setters []*syncs.Thread
	for i, d := range delays {
		ev := syncs.NewEvent(syncs.AutoReset, false)
		objs[i] = ev
		if d < 0 {
			continue
		}
		th, err := syncs.Go(syncs.RunnerFunc(func() uint32 {
			time.Sleep(d)
			ev.Set()
			return 0
		}), syncs.WithName(fmt.Sprintf("setter-%d", i)), syncs.WithLogf(logf))
		if err != nil {
			return err
		}
		setters = append(setters, th)
	}

	start := time.Now()
	idx, res, err := syncs.WaitMany(objs, waitManyArgs.all, waitManyArgs.timeout)
	elapsed := time.Since(start)

	var g errgroup.Group
	for _, th := range setters {
		g.Go(th.Close)
	}
	if jerr := g.Wait(); jerr != nil && err == nil {
		err = jerr
	}
	if err != nil {
		return err
	}
	outf("all=%v index=%d result=%v elapsed=%v\n", waitManyArgs.all, idx, res, elapsed.Round(time.Millisecond))
	return nil
}
