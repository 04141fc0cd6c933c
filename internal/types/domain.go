package types

import (
	"fmt"
	"strings"
	"time"
)

var weekdayTokens = map[time.Weekday]Weekday{
	time.Monday:    WeekdayMonday,
	time.Tuesday:   WeekdayTuesday,
	time.Wednesday: WeekdayWednesday,
	time.Thursday:  WeekdayThursday,
	time.Friday:    WeekdayFriday,
	time.Saturday:  WeekdaySaturday,
	time.Sunday:    WeekdaySunday,
}

// WeekdayOf returns the day token for t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	return weekdayTokens[t.Weekday()]
}

// ClockTime is a wall-clock time at minute granularity, stored as minutes
// since midnight. Seconds are always truncated.
type ClockTime int

// clockLayouts are tried in order. time.Parse accepts a trailing fractional
// second after "05" even though the layout omits it.
var clockLayouts = []string{"15:04:05", "15:04"}

// ParseClockTime parses "HH:MM:SS" (seconds dropped) or "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, NewAppError(ErrCodeValidationInvalidTime, fmt.Sprintf("invalid clock time %q", s), nil)
}

// ClockTimeOf returns the minute-of-day of t in t's own location.
func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// String formats the value as "HH:MM", the form the schedule filter expects.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// DutyAssignment is a remote record saying whether a person is currently on call.
// Its lifecycle is owned by the remote system; this service only flips OnDuty.
type DutyAssignment struct {
	ID        int64
	StartTime ClockTime
	EndTime   ClockTime
	OnDuty    bool
}

// ScheduleWindow is the day and start/end pair attached to an assignment.
type ScheduleWindow struct {
	AssignmentID int64
	Day          Weekday
	Start        ClockTime
	End          ClockTime
}

// ScheduleRecord is one element of the schedule listing's "results" array.
type ScheduleRecord struct {
	UserDutyID int64  `json:"user_duty_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	IsOnDuty   bool   `json:"is_on_duty"`
}

// Assignment converts the wire record into its typed form. day is the filter the
// record was listed under.
func (r ScheduleRecord) Assignment(day Weekday) (DutyAssignment, ScheduleWindow, error) {
	start, err := ParseClockTime(r.StartTime)
	if err != nil {
		return DutyAssignment{}, ScheduleWindow{}, err
	}
	end, err := ParseClockTime(r.EndTime)
	if err != nil {
		return DutyAssignment{}, ScheduleWindow{}, err
	}
	a := DutyAssignment{ID: r.UserDutyID, StartTime: start, EndTime: end, OnDuty: r.IsOnDuty}
	w := ScheduleWindow{AssignmentID: r.UserDutyID, Day: day, Start: start, End: end}
	return a, w, nil
}

// Partition is the resolver's output: assignment IDs to switch on and off,
// each in source page order.
type Partition struct {
	TurnOn  []int64 `json:"turn_on"`
	TurnOff []int64 `json:"turn_off"`
}

// IsEmpty reports whether no transition is due.
func (p Partition) IsEmpty() bool {
	return len(p.TurnOn) == 0 && len(p.TurnOff) == 0
}

// SchedulePage is one page of the schedule listing endpoint.
type SchedulePage struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []ScheduleRecord `json:"results"`
}
