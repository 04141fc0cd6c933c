package types

// Weekday is the three-letter upper-case day token the schedule API filters on.
type Weekday string

const (
	WeekdayMonday    Weekday = "MON"
	WeekdayTuesday   Weekday = "TUE"
	WeekdayWednesday Weekday = "WED"
	WeekdayThursday  Weekday = "THU"
	WeekdayFriday    Weekday = "FRI"
	WeekdaySaturday  Weekday = "SAT"
	WeekdaySunday    Weekday = "SUN"
)

// UpdateOutcome is the result of a single bulk status update call.
type UpdateOutcome string

const (
	// UpdateSucceeded means the remote API accepted the bulk update (HTTP 200).
	UpdateSucceeded UpdateOutcome = "succeeded"
	// UpdateFailed means the call errored in transport or returned a non-200 status.
	UpdateFailed UpdateOutcome = "failed"
	// UpdateSkipped means there was nothing to send (empty ID list or no token).
	UpdateSkipped UpdateOutcome = "skipped"
)

// RunOutcome summarizes one reconciliation invocation.
type RunOutcome string

const (
	RunSucceeded RunOutcome = "succeeded"
	// RunPartial means at least one update failed or schedule pagination was cut short.
	RunPartial RunOutcome = "partial"
	RunFailed  RunOutcome = "failed"
	// RunSkipped means authentication produced no token and nothing was attempted.
	RunSkipped RunOutcome = "skipped"
)

// DutyTransition names the direction of a status change.
type DutyTransition string

const (
	TransitionOn  DutyTransition = "on"
	TransitionOff DutyTransition = "off"
)

// Target returns the is_on_duty value a transition writes.
func (t DutyTransition) Target() bool {
	return t == TransitionOn
}
