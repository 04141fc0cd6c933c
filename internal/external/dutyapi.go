package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"dutyschedule/internal/types"
)

// Endpoint paths on the duty API.
const (
	authPath       = "/api/v1/auth/"
	schedulePath   = "/api/v2/schedule/"
	bulkUpdatePath = "/api/v2/user-duty/bulk-update/"
)

// maxErrorBody bounds how much of an error response is read into logs.
const maxErrorBody = 4096

// DutyAPIClientConfig holds the configuration for creating a DutyAPIClient.
type DutyAPIClientConfig struct {
	BaseURL    string
	AuthScheme string // Authorization header prefix; defaults to "JWT"
	Logger     *slog.Logger
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	JWT string `json:"jwt"`
}

type bulkUpdateRequest struct {
	UserDutyIDs []int64 `json:"user_duty_ids"`
	IsOnDuty    bool    `json:"is_on_duty"`
}

// DutyAPIClient implements DutyAPI over HTTP through BaseClient.
type DutyAPIClient struct {
	base       *BaseClient
	baseURL    *url.URL
	scheduleAt *url.URL // absolute schedule endpoint, the base for relative "next" links
	authScheme string
	logger     *slog.Logger
}

// NewDutyAPIClient creates a DutyAPIClient. BaseURL must be an absolute URL;
// config validation guarantees this for the entrypoints.
func NewDutyAPIClient(base *BaseClient, cfg DutyAPIClientConfig) (*DutyAPIClient, error) {
	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingField,
			fmt.Sprintf("duty API base URL %q is not absolute", cfg.BaseURL),
			err,
		)
	}

	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = "JWT"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scheduleAt, err := url.Parse(u.String() + schedulePath)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeValidationMissingField,
			fmt.Sprintf("duty API base URL %q cannot host the schedule endpoint", cfg.BaseURL),
			err,
		)
	}

	return &DutyAPIClient{
		base:       base,
		baseURL:    u,
		scheduleAt: scheduleAt,
		authScheme: scheme,
		logger:     logger,
	}, nil
}

// Authenticate POSTs the credentials to /api/v1/auth/ and returns the jwt field.
func (c *DutyAPIClient) Authenticate(ctx context.Context, email string, password types.SecretString) (types.SecretString, error) {
	body, err := json.Marshal(authRequest{Email: email, Password: password.Unmask()})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize auth request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(authPath), bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create auth request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req, "Authenticate")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", c.statusError(ctx, resp, "Authenticate", types.ErrCodeAuthTokenMissing)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewAppError(types.ErrCodeAuthTokenMissing, "failed to decode auth response", err)
	}
	if out.JWT == "" {
		return "", types.NewAppError(types.ErrCodeAuthTokenMissing, "auth response contained no jwt", nil)
	}
	return types.SecretString(out.JWT), nil
}

// ScheduleURL returns /api/v2/schedule/?days_of_week=<DAY>&time=<HH:MM>.
func (c *DutyAPIClient) ScheduleURL(day types.Weekday, at types.ClockTime) string {
	q := url.Values{}
	q.Set("days_of_week", string(day))
	q.Set("time", at.String())
	return c.endpoint(schedulePath) + "?" + q.Encode()
}

// FetchSchedulePage GETs a single schedule page.
func (c *DutyAPIClient) FetchSchedulePage(ctx context.Context, token types.SecretString, pageURL string) (*types.SchedulePage, error) {
	target, err := c.resolvePageURL(pageURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create schedule request", err)
	}
	c.authorize(req, token)

	resp, err := c.do(ctx, req, "FetchSchedulePage")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(ctx, resp, "FetchSchedulePage", types.ErrCodeUpstreamDutyAPI)
	}

	var page types.SchedulePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamDutyAPI, "failed to decode schedule page", err)
	}
	return &page, nil
}

// BulkUpdateDutyStatus PUTs {user_duty_ids, is_on_duty}.
func (c *DutyAPIClient) BulkUpdateDutyStatus(ctx context.Context, token types.SecretString, ids []int64, onDuty bool) (int, error) {
	body, err := json.Marshal(bulkUpdateRequest{UserDutyIDs: ids, IsOnDuty: onDuty})
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize bulk update", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint(bulkUpdatePath), bytes.NewReader(body))
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create bulk update request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req, token)

	resp, err := c.do(ctx, req, "BulkUpdateDutyStatus")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, c.statusError(ctx, resp, "BulkUpdateDutyStatus", types.ErrCodeUpstreamDutyAPI)
	}
	return resp.StatusCode, nil
}

func (c *DutyAPIClient) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *DutyAPIClient) authorize(req *http.Request, token types.SecretString) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authScheme+" "+token.Unmask())
}

// do sends req through the breaker and logs transport failures together with
// the breaker state.
func (c *DutyAPIClient) do(ctx context.Context, req *http.Request, operation string) (*http.Response, error) {
	resp, err := c.base.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "duty API request failed",
			"operation", operation,
			"breaker_state", c.base.State().String(),
			"error", err,
		)
		return nil, err
	}
	return resp, nil
}

// resolvePageURL turns a listing "next" link into the absolute URL to fetch,
// refusing any link that would carry the bearer token to another host.
//
// Relative links resolve against the schedule endpoint. Hosts compare by
// hostname and effective port, so "host" and "host:443" match under https.
// Scheme policy: the same scheme is followed as is; an http link under an
// https base (a TLS-terminating proxy in front of the API) is upgraded to the
// base's https origin; an https link under an http base is followed since it
// only strengthens transport. Anything else is refused.
func (c *DutyAPIClient) resolvePageURL(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamPagination, fmt.Sprintf("unparseable page URL %q", raw), err)
	}
	u := c.scheduleAt.ResolveReference(ref)
	base := c.baseURL

	foreign := types.NewAppError(
		types.ErrCodeUpstreamPagination,
		fmt.Sprintf("page URL %q is outside %s://%s", raw, base.Scheme, base.Host),
		nil,
	)
	if !strings.EqualFold(u.Hostname(), base.Hostname()) {
		return "", foreign
	}

	scheme, baseScheme := strings.ToLower(u.Scheme), strings.ToLower(base.Scheme)
	switch {
	case scheme == baseScheme:
		if effectivePort(u) != effectivePort(base) {
			return "", foreign
		}
	case scheme == "http" && baseScheme == "https":
		if p := u.Port(); p != "" && p != "80" {
			return "", foreign
		}
		u.Scheme = base.Scheme
		u.Host = base.Host
	case scheme == "https" && baseScheme == "http":
		if p := u.Port(); p != "" && p != "443" {
			return "", foreign
		}
	default:
		return "", foreign
	}
	return u.String(), nil
}

// effectivePort returns u's explicit port or the default for its scheme.
func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}

// statusError reads a bounded slice of the body for the log line and returns
// an AppError with the status code in its details. A 429 is reported as
// ErrCodeUpstreamRateLimited regardless of code.
func (c *DutyAPIClient) statusError(ctx context.Context, resp *http.Response, operation string, code types.ErrorCode) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	bodyStr := string(bodyBytes)

	if resp.StatusCode == http.StatusTooManyRequests {
		code = types.ErrCodeUpstreamRateLimited
	}

	c.logger.WarnContext(ctx, "duty API returned unexpected status",
		"operation", operation,
		"status_code", resp.StatusCode,
		"breaker_state", c.base.State().String(),
		"response_body", bodyStr,
	)

	return types.NewAppError(
		code,
		fmt.Sprintf("%s returned %d", operation, resp.StatusCode),
		fmt.Errorf("duty API %s: status %d: %s", operation, resp.StatusCode, bodyStr),
	).WithDetails(map[string]any{"status_code": resp.StatusCode})
}

// Compile-time interface compliance check.
var _ DutyAPI = (*DutyAPIClient)(nil)
