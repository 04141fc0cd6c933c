package duty

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dutyschedule/internal/types"
)

// MetricsRecorder receives one sample per run.
type MetricsRecorder interface {
	RecordRun(ctx context.Context, sample types.RunSample)
}

// RunReport describes one reconciliation run.
type RunReport struct {
	RunID        string           `json:"run_id"`
	Day          types.Weekday    `json:"day"`
	Minute       string           `json:"minute"`
	Outcome      types.RunOutcome `json:"outcome"`
	Partition    types.Partition  `json:"partition"`
	PagesFetched int              `json:"pages_fetched"`
	RecordsSeen  int              `json:"records_seen"`
	Malformed    int              `json:"malformed_records"`
	OffResult    UpdateResult     `json:"off_result"`
	OnResult     UpdateResult     `json:"on_result"`
	AuthErr      error            `json:"-"`
	ListErr      error            `json:"-"`
	Duration     time.Duration    `json:"duration"`
}

// ReconcilerConfig holds the dependencies for a Reconciler.
type ReconcilerConfig struct {
	Authenticator *Authenticator
	Resolver      *Resolver
	Updater       *Updater
	Metrics       MetricsRecorder
	// Location is the timezone schedule windows are written in. Defaults to UTC.
	Location *time.Location
	// NewRunID overrides run ID generation in tests.
	NewRunID func() string
	Logger   *slog.Logger
}

// Reconciler drives Authenticator -> Resolver -> Updater for one instant.
type Reconciler struct {
	auth     *Authenticator
	resolver *Resolver
	updater  *Updater
	metrics  MetricsRecorder
	location *time.Location
	newRunID func() string
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = func() string { return uuid.NewString() }
	}
	var m MetricsRecorder = noopRecorder{}
	if cfg.Metrics != nil {
		m = cfg.Metrics
	}
	return &Reconciler{
		auth:     cfg.Authenticator,
		resolver: cfg.Resolver,
		updater:  cfg.Updater,
		metrics:  m,
		location: loc,
		newRunID: newRunID,
		logger:   logger,
	}
}

// Run reconciles duty status for the minute containing now. Turn-offs are
// sent before turn-ons. Run never returns an error; inspect the report.
func (r *Reconciler) Run(ctx context.Context, now time.Time) RunReport {
	started := time.Now()

	runID := r.newRunID()
	local := now.In(r.location)
	day := types.WeekdayOf(local)
	minute := types.ClockTimeOf(local)

	log := r.logger.With("run_id", runID, "day", string(day), "minute", minute.String())
	ctx = types.WithRunID(ctx, runID)
	ctx = types.WithLogger(ctx, log)

	report := RunReport{
		RunID:     runID,
		Day:       day,
		Minute:    minute.String(),
		Partition: types.Partition{TurnOn: []int64{}, TurnOff: []int64{}},
	}

	log.InfoContext(ctx, "duty reconciliation started", "timezone", r.location.String())

	token, err := r.auth.Authenticate(ctx)
	if err != nil {
		report.AuthErr = err
		report.Outcome = types.RunSkipped
		report.OffResult = UpdateResult{Transition: types.TransitionOff, Outcome: types.UpdateSkipped}
		report.OnResult = UpdateResult{Transition: types.TransitionOn, Outcome: types.UpdateSkipped}
		return r.finish(ctx, log, report, started)
	}

	res := r.resolver.Resolve(ctx, token, day, minute)
	report.Partition = res.Partition
	report.PagesFetched = res.Pages
	report.RecordsSeen = res.Records
	report.Malformed = res.Malformed
	report.ListErr = res.Err
	if res.Partition.IsEmpty() {
		log.DebugContext(ctx, "no duty transitions due this minute", "windows_listed", len(res.Windows))
	}

	report.OffResult = r.updater.Update(ctx, token, res.Partition.TurnOff, types.TransitionOff)
	report.OnResult = r.updater.Update(ctx, token, res.Partition.TurnOn, types.TransitionOn)

	report.Outcome = classify(report)
	return r.finish(ctx, log, report, started)
}

func (r *Reconciler) finish(ctx context.Context, log *slog.Logger, report RunReport, started time.Time) RunReport {
	report.Duration = time.Since(started)

	r.metrics.RecordRun(ctx, report.Sample())

	attrs := []any{
		"outcome", string(report.Outcome),
		"turn_on", report.Partition.TurnOn,
		"turn_off", report.Partition.TurnOff,
		"pages_fetched", report.PagesFetched,
		"records_seen", report.RecordsSeen,
		"duration_ms", report.Duration.Milliseconds(),
	}
	if report.AuthErr != nil {
		attrs = append(attrs, "auth_error", report.AuthErr.Error())
	}
	if report.ListErr != nil {
		attrs = append(attrs, "list_error", report.ListErr.Error())
	}
	if report.Outcome == types.RunSucceeded || report.Outcome == types.RunSkipped {
		log.InfoContext(ctx, "duty reconciliation finished", attrs...)
	} else {
		log.WarnContext(ctx, "duty reconciliation finished with failures", attrs...)
	}
	return report
}

// classify derives the run outcome from the update results and listing error.
func classify(report RunReport) types.RunOutcome {
	attempted, failed := 0, 0
	for _, res := range []UpdateResult{report.OffResult, report.OnResult} {
		if res.Outcome == types.UpdateSkipped {
			continue
		}
		attempted++
		if res.Failed() {
			failed++
		}
	}

	switch {
	case report.ListErr != nil && report.PagesFetched == 0:
		return types.RunFailed
	case attempted > 0 && failed == attempted:
		return types.RunFailed
	case failed > 0 || report.ListErr != nil:
		return types.RunPartial
	default:
		return types.RunSucceeded
	}
}

// Sample converts the report into a metrics data point. Only IDs sent in a
// successful update count as turned on/off.
func (r RunReport) Sample() types.RunSample {
	s := types.RunSample{
		Outcome:    r.Outcome,
		Records:    r.RecordsSeen,
		Pages:      r.PagesFetched,
		DurationMs: r.Duration.Milliseconds(),
	}
	for _, res := range []UpdateResult{r.OffResult, r.OnResult} {
		switch res.Outcome {
		case types.UpdateSucceeded:
			if res.Transition == types.TransitionOn {
				s.TurnedOn = len(res.IDs)
			} else {
				s.TurnedOff = len(res.IDs)
			}
		case types.UpdateFailed:
			s.FailedUpdates++
		}
	}
	return s
}

type noopRecorder struct{}

func (noopRecorder) RecordRun(context.Context, types.RunSample) {}
