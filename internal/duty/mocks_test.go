package duty

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"dutyschedule/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock TokenIssuer ---

type mockIssuer struct {
	token types.SecretString
	err   error
	calls int
	email string
	pass  types.SecretString
}

func (m *mockIssuer) Authenticate(_ context.Context, email string, password types.SecretString) (types.SecretString, error) {
	m.calls++
	m.email = email
	m.pass = password
	return m.token, m.err
}

// --- Mock ScheduleLister ---

// mockLister serves pages keyed by URL. The first URL is "page-1".
type mockLister struct {
	pages   map[string]*types.SchedulePage
	errs    map[string]error
	fetched []string
	tokens  []types.SecretString
	day     types.Weekday
	at      types.ClockTime
}

func (m *mockLister) ScheduleURL(day types.Weekday, at types.ClockTime) string {
	m.day = day
	m.at = at
	return "page-1"
}

func (m *mockLister) FetchSchedulePage(_ context.Context, token types.SecretString, pageURL string) (*types.SchedulePage, error) {
	m.fetched = append(m.fetched, pageURL)
	m.tokens = append(m.tokens, token)
	if err, ok := m.errs[pageURL]; ok {
		return nil, err
	}
	page, ok := m.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("unexpected page %q", pageURL)
	}
	return page, nil
}

// pagesOf builds a chain page-1 -> page-2 -> ... from the given result sets.
func pagesOf(results ...[]types.ScheduleRecord) map[string]*types.SchedulePage {
	pages := make(map[string]*types.SchedulePage, len(results))
	for i, rs := range results {
		page := &types.SchedulePage{Count: len(rs), Results: rs}
		if i < len(results)-1 {
			next := fmt.Sprintf("page-%d", i+2)
			page.Next = &next
		}
		pages[fmt.Sprintf("page-%d", i+1)] = page
	}
	return pages
}

// --- Mock StatusWriter ---

type bulkCall struct {
	IDs    []int64
	OnDuty bool
}

type mockWriter struct {
	calls  []bulkCall
	status map[bool]int
	errs   map[bool]error
}

func (m *mockWriter) BulkUpdateDutyStatus(_ context.Context, _ types.SecretString, ids []int64, onDuty bool) (int, error) {
	m.calls = append(m.calls, bulkCall{IDs: ids, OnDuty: onDuty})
	status := 200
	if s, ok := m.status[onDuty]; ok {
		status = s
	}
	if err, ok := m.errs[onDuty]; ok {
		return status, err
	}
	return status, nil
}

// --- Mock MetricsRecorder ---

type mockMetrics struct {
	samples []types.RunSample
}

func (m *mockMetrics) RecordRun(_ context.Context, s types.RunSample) {
	m.samples = append(m.samples, s)
}

func rec(id int64, start, end string, onDuty bool) types.ScheduleRecord {
	return types.ScheduleRecord{UserDutyID: id, StartTime: start, EndTime: end, IsOnDuty: onDuty}
}
