// Package main implements the duty-runner CLI for running duty reconciliation
// outside AWS Lambda.
//
// Usage:
//
//	go run ./cmd/tools/duty-runner --once
//	go run ./cmd/tools/duty-runner --at=2024-01-03T09:00:00+05:45
//	go run ./cmd/tools/duty-runner            # every DUTY_CRON_SPEC tick until interrupted
//
// Configuration is read from the environment (or a .env file) exactly as the
// Lambda reads it. With --once or --at the run report is printed to stdout as
// JSON and the process exits non-zero if the run failed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dutyschedule/internal/app"
	"dutyschedule/internal/config"
	"dutyschedule/internal/cronrunner"
	"dutyschedule/internal/duty"
	"dutyschedule/internal/types"
)

type options struct {
	once bool
	at   *time.Time
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("duty-runner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	once := fs.Bool("once", false, "Run a single reconciliation for the current minute and exit")
	at := fs.String("at", "", "Run a single reconciliation for the given instant (RFC3339) and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: duty-runner [flags]\n\n")
		fmt.Fprintf(stderr, "Reconcile duty status against the duty API, bypassing Lambda.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := options{once: *once}
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return options{}, fmt.Errorf("invalid --at %q: expected RFC3339, e.g. 2024-01-03T09:00:00Z: %w", *at, err)
		}
		opts.at = &t
		opts.once = true
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder, err := app.NewMetrics(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	reconciler, err := app.NewReconciler(cfg, recorder, logger)
	if err != nil {
		logger.Error("failed to initialize reconciler", "error", err)
		os.Exit(1)
	}

	if opts.once {
		now := time.Now()
		if opts.at != nil {
			now = *opts.at
		}
		report := reconciler.Run(ctx, now)
		if err := printReport(os.Stdout, report); err != nil {
			logger.Error("failed to print run report", "error", err)
		}
		if report.Outcome == types.RunFailed {
			os.Exit(1)
		}
		return
	}

	runner, err := cronrunner.New(cfg.Schedule.CronSpec, cfg.Schedule.Location(), func(ctx context.Context, tick time.Time) {
		reconciler.Run(ctx, tick)
	}, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	if err := runner.Run(ctx); err != nil {
		logger.Error("scheduler exited", "error", err)
		os.Exit(1)
	}
}

func printReport(w io.Writer, report duty.RunReport) error {
	out := struct {
		duty.RunReport
		AuthError string `json:"auth_error,omitempty"`
		ListError string `json:"list_error,omitempty"`
	}{RunReport: report}
	if report.AuthErr != nil {
		out.AuthError = report.AuthErr.Error()
	}
	if report.ListErr != nil {
		out.ListError = report.ListErr.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
