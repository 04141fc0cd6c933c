package types

// CloudWatch metric names. All components MUST use these constants.
const (
	MetricDutyTurnedOn     = "DutyTurnedOn"
	MetricDutyTurnedOff    = "DutyTurnedOff"
	MetricDutyUpdateFailed = "DutyUpdateFailed"
	MetricScheduleRecords  = "ScheduleRecords"
	MetricSchedulePages    = "SchedulePages"
	MetricRunOutcome       = "ReconcileRun"
	MetricRunLatency       = "ReconcileLatency"

	DimOutcome    = "Outcome"
	DimTransition = "Transition"

	// DefaultMetricNamespace is used when METRIC_NAMESPACE is unset.
	DefaultMetricNamespace = "DutySchedule"
)

// RunSample is the per-invocation data point handed to a metrics recorder.
type RunSample struct {
	Outcome       RunOutcome
	TurnedOn      int
	TurnedOff     int
	FailedUpdates int
	Records       int
	Pages         int
	DurationMs    int64
}
