// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// The syncdemo command exercises the syncs package: mutual exclusion under
// contention, manual- and auto-reset events, and multi-object waits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/tailscale/threadutil/envknob"
	"github.com/tailscale/threadutil/metrics"
	"github.com/tailscale/threadutil/types/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stdout and Stderr are where results and logs go. Tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.SetFlags(0)
		log.Fatal(err)
	}
}

func outf(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

var rootArgs struct {
	json    bool
	metrics bool
	envFile string
}

// logf is the logger for subcommands, set up by run from the root flags.
var logf logger.Logf = logger.Discard

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(Stderr)
	return fs
}

func run(ctx context.Context, args []string) error {
	rootfs := newFlagSet("syncdemo")
	rootfs.BoolVar(&rootArgs.json, "json", false, "log as JSON instead of text")
	rootfs.BoolVar(&rootArgs.metrics, "metrics", false, "print counters in Prometheus format after the command")
	rootfs.StringVar(&rootArgs.envFile, "env-file", "", "file of KEY=value lines to apply as environment knobs")

	rootCmd := &ffcli.Command{
		Name:       "syncdemo",
		ShortUsage: "syncdemo [flags] <subcommand> [command flags]",
		ShortHelp:  "Exercise bounded-wait synchronization primitives.",
		LongHelp: strings.TrimSpace(`
Every flag can also be set from the environment with the SYNCDEMO_
prefix, e.g. SYNCDEMO_JSON=true.
`),
		Subcommands: []*ffcli.Command{
			contendCmd(),
			eventCmd(),
			waitManyCmd(),
		},
		FlagSet: rootfs,
		Options: []ff.Option{ff.WithEnvVarPrefix("SYNCDEMO")},
		Exec:    func(context.Context, []string) error { return flag.ErrHelp },
	}

	if err := rootCmd.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	base, flush := newLogf()
	defer flush()
	logf = logger.RateLimitedFn(base, time.Second, 10, 100)

	if rootArgs.envFile != "" {
		if err := envknob.ApplyFile(rootArgs.envFile); err != nil {
			return err
		}
	}
	envknob.LogCurrent(logf)

	err := rootCmd.Run(ctx)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if rootArgs.metrics {
		metrics.WritePrometheus(Stdout)
	}
	return err
}

// newLogf returns the base logger selected by the root flags and a func
// to flush it.
func newLogf() (logger.Logf, func()) {
	if !rootArgs.json {
		l := log.New(Stderr, "", log.LstdFlags|log.Lmicroseconds)
		return l.Printf, func() {}
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(Stderr),
		zap.NewAtomicLevelAt(zap.InfoLevel),
	)
	z := zap.New(core).Sugar()
	return logger.FromZap(z), func() { z.Sync() }
}
