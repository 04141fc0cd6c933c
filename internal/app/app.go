// Package app wires configuration into a ready-to-run duty.Reconciler. Both
// the Lambda and the local runner build their object graph here so the two
// cannot drift apart.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"dutyschedule/internal/config"
	"dutyschedule/internal/duty"
	"dutyschedule/internal/external"
	"dutyschedule/internal/metrics"
)

// NewLogger returns the JSON stdout logger used by every entrypoint.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With(
		"service", cfg.Service,
		"env", cfg.Environment,
		"version", cfg.Build.Version,
	)
}

// LoadAWSConfig loads the SDK configuration for the configured region,
// honouring AWS_ENDPOINT_URL for LocalStack.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.EndpointURL))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewMetrics returns a CloudWatch recorder when metrics are enabled and a
// no-op recorder otherwise.
func NewMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (duty.MetricsRecorder, error) {
	if !cfg.Observability.MetricsEnabled {
		return metrics.NoopRunMetrics{}, nil
	}
	awsCfg, err := LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return metrics.NewCloudWatchRunMetrics(
		cloudwatch.NewFromConfig(awsCfg),
		cfg.Observability.MetricNamespace,
		logger,
	), nil
}

// NewReconciler builds the HTTP client, duty API client and the three
// pipeline stages from cfg.
func NewReconciler(cfg *config.Config, recorder duty.MetricsRecorder, logger *slog.Logger) (*duty.Reconciler, error) {
	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	breaker := external.DefaultBreakerSettings("duty-api")
	if cfg.API.BreakerFailures > 0 {
		breaker.ConsecutiveFailures = cfg.API.BreakerFailures
	}
	if cfg.API.BreakerOpenTimeout > 0 {
		breaker.OpenTimeout = cfg.API.BreakerOpenTimeout
	}
	base := external.NewBaseClient(httpClient, breaker, cfg.API.UserAgent)

	client, err := external.NewDutyAPIClient(base, external.DutyAPIClientConfig{
		BaseURL:    cfg.API.BaseURL,
		AuthScheme: cfg.API.AuthScheme,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating duty API client: %w", err)
	}

	return duty.NewReconciler(duty.ReconcilerConfig{
		Authenticator: duty.NewAuthenticator(client, cfg.API, logger),
		Resolver:      duty.NewResolver(client, cfg.API.MaxPages, logger),
		Updater:       duty.NewUpdater(client, logger),
		Metrics:       recorder,
		Location:      cfg.Schedule.Location(),
		Logger:        logger,
	}), nil
}
