// Package cronrunner drives a job on a cron schedule for local runs, where no
// EventBridge rule exists to invoke the Lambda.
package cronrunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Parser reads six-field specs (seconds first) and descriptors such as
// "@every 1m". Config validation uses it so a spec that loads also schedules.
var Parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is called once per tick with the time the tick fired.
type Job func(ctx context.Context, tick time.Time)

// Runner owns a cron scheduler with a single job registered.
type Runner struct {
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	logger  *slog.Logger
	jobCtx  context.Context
	started bool
}

// New parses spec with Parser and registers job. Ticks that fire
// while the previous run is still going are skipped.
func New(spec string, loc *time.Location, job Job, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}

	schedule, err := Parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing cron spec %q: %w", spec, err)
	}

	r := &Runner{
		spec:   spec,
		logger: logger.With("component", "cronrunner"),
		jobCtx: context.Background(),
	}
	cl := cronLogger{logger: r.logger}
	r.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithParser(Parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	r.entry = r.cron.Schedule(schedule, cron.FuncJob(func() {
		job(r.jobCtx, time.Now().In(loc))
	}))
	return r, nil
}

// Next returns the next scheduled tick, or the zero time before Run.
func (r *Runner) Next() time.Time {
	return r.cron.Entry(r.entry).Next
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// any in-flight job. Jobs get a context that is not cancelled with ctx so a
// reconciliation is not cut off between its two bulk updates.
func (r *Runner) Run(ctx context.Context) error {
	if r.started {
		return fmt.Errorf("cron runner for %q already started", r.spec)
	}
	r.started = true
	r.jobCtx = context.WithoutCancel(ctx)

	r.cron.Start()
	r.logger.InfoContext(ctx, "scheduler started", "schedule", r.spec, "next", r.Next())

	<-ctx.Done()

	stopped := r.cron.Stop()
	<-stopped.Done()
	r.logger.InfoContext(ctx, "scheduler stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
