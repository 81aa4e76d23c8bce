// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"flag"
	"fmt"
	"sync/atomic"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/tailscale/threadutil/syncs"
	"golang.org/x/sync/errgroup"
)

var contendArgs struct {
	threads int
	iters   int
}

func contendCmd() *ffcli.Command {
	fs := newFlagSet("contend")
	fs.IntVar(&contendArgs.threads, "threads", 4, "number of threads")
	fs.IntVar(&contendArgs.iters, "iters", 1000, "increments per thread")
	return &ffcli.Command{
		Name:       "contend",
		ShortUsage: "syncdemo contend [-threads N] [-iters M]",
		ShortHelp:  "Increment a shared counter from many threads under one Mutex",
		FlagSet:    fs,
		Exec:       runContend,
	}
}

func runContend(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return flag.ErrHelp
	}
	var (
		mu      syncs.Mutex
		counter int // guarded by mu
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	worker := syncs.RunnerFunc(func() uint32 {
		for range contendArgs.iters {
			lk := syncs.Lock(&mu)
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			counter++
			inside.Add(-1)
			lk.Unlock()
		}
		return 0
	})

	var g errgroup.Group
	for i := range contendArgs.threads {
		th, err := syncs.Go(worker, syncs.WithName(fmt.Sprintf("contend-%d", i)), syncs.WithLogf(logf))
		if err != nil {
			return err
		}
		g.Go(func() error {
			_, err := th.Join()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	want := contendArgs.threads * contendArgs.iters
	outf("counter=%d want=%d max_occupancy=%d\n", counter, want, maxSeen.Load())
	if counter != want || maxSeen.Load() > 1 {
		return fmt.Errorf("mutual exclusion violated: counter=%d want=%d max_occupancy=%d", counter, want, maxSeen.Load())
	}
	return nil
}
