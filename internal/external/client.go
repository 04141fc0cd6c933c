// Package external is the boundary between the reconciler and the remote duty
// API. Every outbound call goes through BaseClient, which injects correlation
// and User-Agent headers, trips a circuit breaker on repeated upstream
// failures, and maps transport failures onto types.AppError.
//
// Calls are never retried: one invocation issues each request at most once,
// and the next scheduled invocation is the retry.
package external

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"dutyschedule/internal/types"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker wrapped around the HTTP client.
// The breaker lives as long as the process, so on AWS Lambda it spans warm
// invocations of the same container.
//
// OpenTimeout must stay below the one-minute trigger cadence. Each invocation
// then finds the breaker closed or half-open, and its first request (the auth
// call) is let through as the trial request. A transition due at a given
// minute is never dropped because an earlier minute tripped the breaker.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures trips the breaker once exceeded.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a half-open trial request.
	OpenTimeout time.Duration
}

// DefaultOpenTimeout is the breaker's open period when none is configured.
const DefaultOpenTimeout = 30 * time.Second

// DefaultBreakerSettings returns the settings used by the duty API client.
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         DefaultOpenTimeout,
	}
}

// BaseClient wraps an *http.Client and a circuit breaker.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient with its own breaker.
func NewBaseClient(httpClient *http.Client, settings BreakerSettings, userAgent string) *BaseClient {
	threshold := settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return NewBaseClientWithBreaker(httpClient, cb, userAgent)
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided circuit
// breaker, for tests or for sharing one breaker between clients.
func NewBaseClientWithBreaker(httpClient *http.Client, breaker *gobreaker.CircuitBreaker[*http.Response], userAgent string) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		userAgent: userAgent,
	}
}

// Do executes req exactly once.
//
// Any HTTP response, including 4xx and 5xx, is returned to the caller with a
// nil error so the caller can log the status and body; 5xx and 429 still count
// as failures for the breaker. A transport failure or an open breaker yields a
// nil response and a *types.AppError. The caller closes the response body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if runID := types.GetRunID(req.Context()); runID != "" {
		req.Header.Set("X-B3-TraceId", runID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})

	if err == nil {
		return resp, nil
	}
	if resp != nil {
		// Counted against the breaker, but still a response the caller should see.
		return resp, nil
	}
	return nil, c.mapError(err)
}

// State exposes the breaker state for logging.
func (c *BaseClient) State() gobreaker.State {
	return c.breaker.State()
}

func (c *BaseClient) mapError(err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; duty API unavailable",
			err,
		)
	}
	return types.NewAppError(
		types.ErrCodeUpstreamDutyAPI,
		"duty API request failed",
		err,
	)
}
