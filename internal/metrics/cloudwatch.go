// Package metrics publishes reconciliation run metrics to AWS CloudWatch.
package metrics

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"dutyschedule/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRunMetrics emits one PutMetricData call per run:
//   - ReconcileRun: Dims {Outcome} -- always 1
//   - DutyTurnedOn / DutyTurnedOff: Dims {Transition} -- IDs sent in successful updates
//   - DutyUpdateFailed: no dims -- bulk calls that failed
//   - ScheduleRecords / SchedulePages: no dims
//   - ReconcileLatency: no dims, milliseconds
type CloudWatchRunMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRunMetrics creates a recorder publishing to namespace. An empty
// namespace falls back to types.DefaultMetricNamespace.
func NewCloudWatchRunMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRunMetrics {
	if namespace == "" {
		namespace = types.DefaultMetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRunMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRun publishes the sample. Publishing failures are logged and dropped;
// metrics never change a run's outcome.
func (m *CloudWatchRunMetrics) RecordRun(ctx context.Context, sample types.RunSample) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			count(types.MetricRunOutcome, 1, dim(types.DimOutcome, string(sample.Outcome))),
			count(types.MetricDutyTurnedOn, sample.TurnedOn, dim(types.DimTransition, string(types.TransitionOn))),
			count(types.MetricDutyTurnedOff, sample.TurnedOff, dim(types.DimTransition, string(types.TransitionOff))),
			count(types.MetricDutyUpdateFailed, sample.FailedUpdates),
			count(types.MetricScheduleRecords, sample.Records),
			count(types.MetricSchedulePages, sample.Pages),
			{
				MetricName: aws.String(types.MetricRunLatency),
				Value:      aws.Float64(float64(sample.DurationMs)),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		appErr := types.NewAppError(types.ErrCodeInternalMetrics, "PutMetricData failed", err)
		m.logger.ErrorContext(ctx, "failed to record run metrics",
			"error", appErr.Error(),
			"cause", err.Error(),
			"error_code", string(appErr.Code),
			"outcome", string(sample.Outcome),
		)
	}
}

func count(name string, value int, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(value)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// NoopRunMetrics discards samples. Used when METRICS_ENABLED is false.
type NoopRunMetrics struct{}

// RecordRun does nothing.
func (NoopRunMetrics) RecordRun(context.Context, types.RunSample) {}
