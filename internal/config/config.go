// Package config defines the configuration for the duty schedule reconciler.
// Configuration is loaded once at process initialization (Lambda cold start or
// CLI start-up) and is immutable thereafter. Each component receives only the
// sub-struct it needs.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Legacy variable names (Lowest)
//
// Any missing required value or invalid format is returned as a *ConfigError
// and the entrypoint exits immediately.
package config

import (
	"time"

	"dutyschedule/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import the types package for credential fields.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"duty-scheduler"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	API           APIConfig
	Schedule      ScheduleConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// APIConfig holds the remote duty API location, service-account credentials,
// and client tuning.
type APIConfig struct {
	BaseURL  string       `envconfig:"DUTY_API_BASE_URL" validate:"required,url"`
	Email    string       `envconfig:"DUTY_API_EMAIL" validate:"required,email"`
	Password SecretString `envconfig:"DUTY_API_PASSWORD" validate:"required"`

	// AuthScheme prefixes the token in the Authorization header. The duty API
	// uses djangorestframework-jwt, which expects "JWT".
	AuthScheme string        `envconfig:"DUTY_API_AUTH_SCHEME" default:"JWT" validate:"required"`
	Timeout    time.Duration `envconfig:"DUTY_API_TIMEOUT" default:"30s" validate:"gt=0"`
	UserAgent  string        `envconfig:"DUTY_API_USER_AGENT" default:"DutySchedule/1.0"`
	MaxPages   int           `envconfig:"DUTY_API_MAX_PAGES" default:"100" validate:"min=1"`

	// BreakerFailures is how many consecutive upstream failures trip the
	// breaker. BreakerOpenTimeout must be shorter than the one-minute trigger
	// cadence so an open breaker never blocks the next minute's run.
	BreakerFailures    uint32        `envconfig:"DUTY_API_BREAKER_FAILURES" default:"5" validate:"min=1"`
	BreakerOpenTimeout time.Duration `envconfig:"DUTY_API_BREAKER_OPEN_TIMEOUT" default:"30s" validate:"gt=0,lt=1m"`
}

// ScheduleConfig holds the wall-clock settings used to evaluate schedule windows.
type ScheduleConfig struct {
	// Timezone is the IANA zone the remote schedules are written in.
	Timezone string `envconfig:"DUTY_TIMEZONE" default:"UTC" validate:"required,tzname"`
	// CronSpec drives the local runner only; in AWS the EventBridge rule owns
	// the cadence. Six fields, seconds first.
	CronSpec string `envconfig:"DUTY_CRON_SPEC" default:"0 * * * * *" validate:"required,cronspec"`
}

// Location resolves Timezone. Validation guarantees it loads, so the UTC
// fallback is only reachable for hand-built configs.
func (s ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AWSConfig holds AWS regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds run metric settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"DutySchedule"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrAlias indicates a legacy variable could not be copied to its new name.
	ErrAlias ConfigErrorType = "ALIAS_FAILED"
)
