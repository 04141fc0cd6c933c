package external

import (
	"context"

	"dutyschedule/internal/types"
)

// DutyAPI abstracts the three remote endpoints the reconciler uses.
// Implementations translate between domain types and the REST wire format.
type DutyAPI interface {
	// Authenticate exchanges service-account credentials for a bearer token.
	// A response other than 201, or a 201 without a token, yields an
	// ErrCodeAuthTokenMissing error.
	Authenticate(ctx context.Context, email string, password types.SecretString) (types.SecretString, error)

	// ScheduleURL builds the first listing URL for a day/minute filter.
	ScheduleURL(day types.Weekday, at types.ClockTime) string

	// FetchSchedulePage GETs one listing page. pageURL is either ScheduleURL's
	// result or a previous page's "next" link, and must share the base URL's
	// origin. A non-200 response is returned as an error carrying the status.
	FetchSchedulePage(ctx context.Context, token types.SecretString, pageURL string) (*types.SchedulePage, error)

	// BulkUpdateDutyStatus PUTs the target flag for all ids in one call and
	// returns the HTTP status. Only 200 is success.
	BulkUpdateDutyStatus(ctx context.Context, token types.SecretString, ids []int64, onDuty bool) (int, error)
}
