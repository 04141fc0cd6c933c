// Package main is the entrypoint for the Duty Scheduler Lambda function.
//
// An EventBridge rule invokes the function every minute. Each invocation
// authenticates against the duty API, lists the schedule windows that start or
// end in the current minute, and flips the matching duty assignments with at
// most two bulk updates (turn-off first, then turn-on).
//
// The function always answers {"statusCode": 200, "body": "\"Success.\""}.
// Run outcomes are reported through logs and CloudWatch metrics only.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"dutyschedule/internal/app"
	"dutyschedule/internal/config"
	"dutyschedule/internal/duty"
)

// successBody is the JSON-encoded string "Success.".
const successBody = `"Success."`

// Response is the Lambda result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Reconciler is the subset of duty.Reconciler the handler calls.
type Reconciler interface {
	Run(ctx context.Context, now time.Time) duty.RunReport
}

// triggerDetail is the optional "detail" of a manually sent event.
type triggerDetail struct {
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// Handler holds the dependencies for the Lambda handler function.
type Handler struct {
	Reconciler Reconciler
	Now        func() time.Time
	Logger     *slog.Logger
}

// Handle runs one reconciliation.
//
// The reference instant is, in order of preference: detail.reference_time,
// the event's own time (the scheduled minute for EventBridge cron rules), and
// the wall clock.
func (h *Handler) Handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := h.referenceTime(ctx, logger, event)
	logger.InfoContext(ctx, "duty scheduler invoked",
		"event_id", event.ID,
		"source", event.Source,
		"reference_time", now.Format(time.RFC3339),
	)

	report := h.Reconciler.Run(ctx, now)

	logger.InfoContext(ctx, "duty scheduler completed",
		"run_id", report.RunID,
		"outcome", string(report.Outcome),
	)
	return Response{StatusCode: 200, Body: successBody}, nil
}

func (h *Handler) referenceTime(ctx context.Context, logger *slog.Logger, event events.CloudWatchEvent) time.Time {
	if len(event.Detail) > 0 {
		var detail triggerDetail
		if err := json.Unmarshal(event.Detail, &detail); err != nil {
			logger.WarnContext(ctx, "ignoring unparseable event detail", "error", err)
		} else if detail.ReferenceTime != nil {
			return *detail.ReferenceTime
		}
	}
	if !event.Time.IsZero() {
		return event.Time
	}
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	logger.Info("Duty Scheduler Lambda initializing (cold start)",
		"timezone", cfg.Schedule.Timezone,
		"api_base_url", cfg.API.BaseURL,
		"metrics_enabled", cfg.Observability.MetricsEnabled,
	)

	recorder, err := app.NewMetrics(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	reconciler, err := app.NewReconciler(cfg, recorder, logger)
	if err != nil {
		logger.Error("Failed to initialize reconciler", "error", err)
		os.Exit(1)
	}

	handler := &Handler{
		Reconciler: reconciler,
		Now:        time.Now,
		Logger:     logger,
	}

	logger.Info("Duty Scheduler Lambda initialized")

	lambda.Start(handler.Handle)
}
