package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutyschedule/internal/duty"
	"dutyschedule/internal/types"
)

type mockReconciler struct {
	calls  []time.Time
	report duty.RunReport
}

func (m *mockReconciler) Run(_ context.Context, now time.Time) duty.RunReport {
	m.calls = append(m.calls, now)
	return m.report
}

func newTestHandler(rec *mockReconciler, now time.Time) *Handler {
	return &Handler{
		Reconciler: rec,
		Now:        func() time.Time { return now },
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var (
	eventTime = time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	wallClock = time.Date(2024, time.January, 3, 9, 0, 2, 0, time.UTC)
)

func TestHandle_AlwaysReportsSuccess(t *testing.T) {
	for _, outcome := range []types.RunOutcome{types.RunSucceeded, types.RunPartial, types.RunFailed, types.RunSkipped} {
		t.Run(string(outcome), func(t *testing.T) {
			rec := &mockReconciler{report: duty.RunReport{Outcome: outcome}}

			resp, err := newTestHandler(rec, wallClock).Handle(context.Background(), events.CloudWatchEvent{Time: eventTime})
			require.NoError(t, err)

			assert.Equal(t, Response{StatusCode: 200, Body: `"Success."`}, resp)
			assert.Len(t, rec.calls, 1)
		})
	}
}

func TestHandle_ResponseShape(t *testing.T) {
	resp, err := newTestHandler(&mockReconciler{}, wallClock).Handle(context.Background(), events.CloudWatchEvent{})
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"statusCode":200,"body":"\"Success.\""}`, string(out))

	var body string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "Success.", body)
}

func TestHandle_ReferenceTime(t *testing.T) {
	override := time.Date(2024, time.January, 5, 17, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event events.CloudWatchEvent
		want  time.Time
	}{
		{
			name:  "scheduled event uses event time",
			event: events.CloudWatchEvent{Time: eventTime, Detail: json.RawMessage(`{}`)},
			want:  eventTime,
		},
		{
			name:  "detail override wins",
			event: events.CloudWatchEvent{Time: eventTime, Detail: json.RawMessage(`{"reference_time":"2024-01-05T17:30:00Z"}`)},
			want:  override,
		},
		{
			name:  "unparseable detail falls back to event time",
			event: events.CloudWatchEvent{Time: eventTime, Detail: json.RawMessage(`{"reference_time":"tomorrow"}`)},
			want:  eventTime,
		},
		{
			name:  "no event time uses wall clock",
			event: events.CloudWatchEvent{},
			want:  wallClock,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockReconciler{}
			_, err := newTestHandler(rec, wallClock).Handle(context.Background(), tt.event)
			require.NoError(t, err)

			require.Len(t, rec.calls, 1)
			assert.True(t, tt.want.Equal(rec.calls[0]), "got %s, want %s", rec.calls[0], tt.want)
		})
	}
}

func TestHandle_DecodesEventBridgePayload(t *testing.T) {
	raw := `{
		"version": "0",
		"id": "53dc4d37-cffa-4f76-80c9-8b7d4a4d2eaa",
		"detail-type": "Scheduled Event",
		"source": "aws.events",
		"account": "123456789012",
		"time": "2024-01-03T09:00:00Z",
		"region": "us-east-1",
		"resources": ["arn:aws:events:us-east-1:123456789012:rule/duty-scheduler-every-minute"],
		"detail": {}
	}`
	var event events.CloudWatchEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	rec := &mockReconciler{}
	_, err := newTestHandler(rec, wallClock).Handle(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	assert.True(t, eventTime.Equal(rec.calls[0]))
}
