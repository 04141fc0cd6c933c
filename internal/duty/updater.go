package duty

import (
	"context"
	"log/slog"

	"dutyschedule/internal/types"
)

// StatusWriter is the slice of the duty API the Updater needs.
type StatusWriter interface {
	BulkUpdateDutyStatus(ctx context.Context, token types.SecretString, ids []int64, onDuty bool) (int, error)
}

// UpdateResult is the explicit outcome of one bulk update.
type UpdateResult struct {
	Transition types.DutyTransition `json:"transition"`
	Outcome    types.UpdateOutcome  `json:"outcome"`
	IDs        []int64              `json:"ids"`
	StatusCode int                  `json:"status_code,omitempty"`
	Err        error                `json:"-"`
}

// Failed reports whether the update was attempted and did not succeed.
func (r UpdateResult) Failed() bool {
	return r.Outcome == types.UpdateFailed
}

// Updater turns a set of assignments on or off with one bulk call.
type Updater struct {
	writer StatusWriter
	logger *slog.Logger
}

// NewUpdater creates an Updater.
func NewUpdater(writer StatusWriter, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{writer: writer, logger: logger}
}

// Update sends ids with the transition's target flag. It never returns an
// error; failures are logged and carried in the result.
func (u *Updater) Update(ctx context.Context, token types.SecretString, ids []int64, transition types.DutyTransition) UpdateResult {
	log := types.LoggerFromContext(ctx, u.logger).With("transition", string(transition))
	result := UpdateResult{Transition: transition, IDs: ids}

	if token.IsZero() {
		result.Outcome = types.UpdateSkipped
		result.Err = types.NewAppError(types.ErrCodeAuthTokenMissing, "no token for bulk update", nil)
		log.WarnContext(ctx, "bulk update skipped: authentication token not found")
		return result
	}
	if len(ids) == 0 {
		result.Outcome = types.UpdateSkipped
		log.DebugContext(ctx, "bulk update skipped: no user duty IDs")
		return result
	}

	status, err := u.writer.BulkUpdateDutyStatus(ctx, token, ids, transition.Target())
	result.StatusCode = status
	if err != nil {
		result.Outcome = types.UpdateFailed
		result.Err = err
		log.ErrorContext(ctx, "failed to update user duty status",
			"user_duty_ids", ids,
			"status_code", status,
			"error", err,
		)
		return result
	}

	result.Outcome = types.UpdateSucceeded
	log.InfoContext(ctx, "user duty status updated",
		"user_duty_ids", ids,
		"count", len(ids),
	)
	return result
}
