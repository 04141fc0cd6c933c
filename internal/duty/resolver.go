package duty

import (
	"context"
	"fmt"
	"log/slog"

	"dutyschedule/internal/types"
)

// DefaultMaxPages caps a schedule walk when the resolver is built without one.
const DefaultMaxPages = 100

// ScheduleLister is the slice of the duty API the Resolver needs.
type ScheduleLister interface {
	ScheduleURL(day types.Weekday, at types.ClockTime) string
	FetchSchedulePage(ctx context.Context, token types.SecretString, pageURL string) (*types.SchedulePage, error)
}

// Resolution is what one schedule walk produced.
type Resolution struct {
	Partition types.Partition
	// Windows holds the typed window of every well-formed record, in page order.
	Windows []types.ScheduleWindow
	Pages   int
	Records int
	// Malformed counts records skipped because a time field did not parse.
	Malformed int
	// Err is set when the walk stopped before the listing said it was done.
	// Partition still reflects every page fetched before the stop.
	Err error
}

// Resolver lists schedule windows and partitions their assignments.
type Resolver struct {
	lister   ScheduleLister
	maxPages int
	logger   *slog.Logger
}

// NewResolver creates a Resolver. maxPages <= 0 uses DefaultMaxPages.
func NewResolver(lister ScheduleLister, maxPages int, logger *slog.Logger) *Resolver {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		lister:   lister,
		maxPages: maxPages,
		logger:   logger,
	}
}

// Resolve fetches every page for the day/minute filter, merges them in page
// order, and partitions the result against at.
func (r *Resolver) Resolve(ctx context.Context, token types.SecretString, day types.Weekday, at types.ClockTime) Resolution {
	log := types.LoggerFromContext(ctx, r.logger)

	records, pages, err := r.listAll(ctx, token, day, at)
	if err != nil {
		log.WarnContext(ctx, "schedule listing stopped early",
			"day", string(day),
			"time", at.String(),
			"pages_fetched", pages,
			"error", err,
		)
	}

	assignments := make([]types.DutyAssignment, 0, len(records))
	windows := make([]types.ScheduleWindow, 0, len(records))
	malformed := 0
	for _, rec := range records {
		a, w, convErr := rec.Assignment(day)
		if convErr != nil {
			malformed++
			log.WarnContext(ctx, "skipping schedule record with malformed time",
				"user_duty_id", rec.UserDutyID,
				"start_time", rec.StartTime,
				"end_time", rec.EndTime,
				"error", convErr,
			)
			continue
		}
		assignments = append(assignments, a)
		windows = append(windows, w)
	}

	return Resolution{
		Partition: Partition(at, assignments),
		Windows:   windows,
		Pages:     pages,
		Records:   len(records),
		Malformed: malformed,
		Err:       err,
	}
}

// listAll follows "next" links until the listing is exhausted. It stops early,
// keeping what it has, on a fetch error, a revisited link, or the page cap.
func (r *Resolver) listAll(ctx context.Context, token types.SecretString, day types.Weekday, at types.ClockTime) ([]types.ScheduleRecord, int, error) {
	var records []types.ScheduleRecord
	visited := make(map[string]struct{})
	pages := 0

	pageURL := r.lister.ScheduleURL(day, at)
	for pageURL != "" {
		if pages >= r.maxPages {
			return records, pages, types.NewAppError(
				types.ErrCodeUpstreamPagination,
				fmt.Sprintf("schedule listing exceeded %d pages", r.maxPages),
				nil,
			)
		}
		if _, seen := visited[pageURL]; seen {
			return records, pages, types.NewAppError(
				types.ErrCodeUpstreamPagination,
				fmt.Sprintf("schedule listing revisited %s", pageURL),
				nil,
			)
		}
		visited[pageURL] = struct{}{}

		page, err := r.lister.FetchSchedulePage(ctx, token, pageURL)
		if err != nil {
			return records, pages, err
		}
		pages++
		records = append(records, page.Results...)

		pageURL = ""
		if page.Next != nil {
			pageURL = *page.Next
		}
	}
	return records, pages, nil
}

// Partition splits assignments by which boundary falls on now.
//
// An assignment whose start is now and is off goes to TurnOn. Otherwise, one
// whose end is now and is on goes to TurnOff. A start match takes precedence,
// so an assignment is never considered for turn-off in the same minute its
// start matched. Both slices keep input order and are never nil.
func Partition(now types.ClockTime, assignments []types.DutyAssignment) types.Partition {
	p := types.Partition{TurnOn: []int64{}, TurnOff: []int64{}}
	for _, a := range assignments {
		switch {
		case a.StartTime == now:
			if !a.OnDuty {
				p.TurnOn = append(p.TurnOn, a.ID)
			}
		case a.EndTime == now:
			if a.OnDuty {
				p.TurnOff = append(p.TurnOff, a.ID)
			}
		}
	}
	return p
}
