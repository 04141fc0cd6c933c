package config

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

// testDeps returns loader dependencies that skip the .env file and route
// alias writes through t.Setenv so they are undone after the test.
func testDeps(t *testing.T) loaderDeps {
	t.Helper()
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv: func(key, value string) error {
			t.Setenv(key, value)
			return nil
		},
		dotenv: func() error { return nil },
	}
}

// unsetForTest removes key from the environment for the duration of the test.
func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

// setRequiredTestEnv sets every variable without a default.
func setRequiredTestEnv(t *testing.T) {
	t.Helper()
	for current, legacy := range legacyAliases {
		unsetForTest(t, current)
		unsetForTest(t, legacy)
	}
	t.Setenv("APP_ENV", "local")
	t.Setenv("DUTY_API_BASE_URL", "https://duty.example.com/")
	t.Setenv("DUTY_API_EMAIL", "scheduler@example.com")
	t.Setenv("DUTY_API_PASSWORD", "s3cret-pass")
}

func TestLoadConfigLocalSuccess(t *testing.T) {
	setRequiredTestEnv(t)

	cfg, err := loadConfigWithDeps(testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps returned error: %v", err)
	}

	if cfg.API.BaseURL != "https://duty.example.com" {
		t.Errorf("API.BaseURL = %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.API.Email != "scheduler@example.com" {
		t.Errorf("API.Email = %q", cfg.API.Email)
	}
	if cfg.API.Password.Unmask() != "s3cret-pass" {
		t.Errorf("API.Password.Unmask() = %q", cfg.API.Password.Unmask())
	}
	if cfg.API.Password.String() != "***REDACTED***" {
		t.Errorf("API.Password.String() should be redacted, got %q", cfg.API.Password.String())
	}

	// Defaults
	if cfg.API.AuthScheme != "JWT" {
		t.Errorf("API.AuthScheme = %q, want JWT", cfg.API.AuthScheme)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.API.MaxPages != 100 {
		t.Errorf("API.MaxPages = %d, want 100", cfg.API.MaxPages)
	}
	if cfg.API.BreakerFailures != 5 {
		t.Errorf("API.BreakerFailures = %d, want 5", cfg.API.BreakerFailures)
	}
	if cfg.API.BreakerOpenTimeout != 30*time.Second {
		t.Errorf("API.BreakerOpenTimeout = %v, want 30s", cfg.API.BreakerOpenTimeout)
	}
	if cfg.Schedule.Timezone != "UTC" {
		t.Errorf("Schedule.Timezone = %q, want UTC", cfg.Schedule.Timezone)
	}
	if cfg.Schedule.CronSpec != "0 * * * * *" {
		t.Errorf("Schedule.CronSpec = %q", cfg.Schedule.CronSpec)
	}
	if cfg.Observability.MetricsEnabled {
		t.Error("Observability.MetricsEnabled should default to false")
	}
	if cfg.Observability.MetricNamespace != "DutySchedule" {
		t.Errorf("Observability.MetricNamespace = %q", cfg.Observability.MetricNamespace)
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want dev", cfg.Build.Version)
	}
}

func TestLoadConfigSetsUTC(t *testing.T) {
	setRequiredTestEnv(t)

	originalLocal := time.Local
	t.Cleanup(func() {
		time.Local = originalLocal
	})
	time.Local = time.FixedZone("UTC+3", 3*3600)

	if _, err := loadConfigWithDeps(testDeps(t)); err != nil {
		t.Fatalf("loadConfigWithDeps returned error: %v", err)
	}
	if time.Local != time.UTC {
		t.Errorf("time.Local = %v, want UTC", time.Local)
	}
}

func TestLoadConfigLegacyAliases(t *testing.T) {
	setRequiredTestEnv(t)
	unsetForTest(t, "DUTY_API_BASE_URL")
	unsetForTest(t, "DUTY_API_EMAIL")
	unsetForTest(t, "DUTY_API_PASSWORD")

	t.Setenv("BASE_API_URL", "https://legacy.example.com")
	t.Setenv("USER_EMAIL", "legacy@example.com")
	t.Setenv("USER_PASSWORD", "legacy-pass")
	t.Setenv("TIMEZONE", "Asia/Kathmandu")

	cfg, err := loadConfigWithDeps(testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps returned error: %v", err)
	}
	if cfg.API.BaseURL != "https://legacy.example.com" {
		t.Errorf("API.BaseURL = %q, want legacy value", cfg.API.BaseURL)
	}
	if cfg.API.Email != "legacy@example.com" {
		t.Errorf("API.Email = %q, want legacy value", cfg.API.Email)
	}
	if cfg.API.Password.Unmask() != "legacy-pass" {
		t.Errorf("API.Password = %q, want legacy value", cfg.API.Password.Unmask())
	}
	if cfg.Schedule.Timezone != "Asia/Kathmandu" {
		t.Errorf("Schedule.Timezone = %q, want legacy value", cfg.Schedule.Timezone)
	}
}

func TestLoadConfigCurrentNameWinsOverLegacy(t *testing.T) {
	setRequiredTestEnv(t)
	t.Setenv("BASE_API_URL", "https://legacy.example.com")

	cfg, err := loadConfigWithDeps(testDeps(t))
	if err != nil {
		t.Fatalf("loadConfigWithDeps returned error: %v", err)
	}
	if cfg.API.BaseURL != "https://duty.example.com" {
		t.Errorf("API.BaseURL = %q, want current-name value", cfg.API.BaseURL)
	}
}

func TestLoadConfigAliasSetFailure(t *testing.T) {
	setRequiredTestEnv(t)
	unsetForTest(t, "DUTY_API_EMAIL")
	t.Setenv("USER_EMAIL", "legacy@example.com")

	deps := testDeps(t)
	deps.setEnv = func(string, string) error { return errors.New("read-only environment") }

	_, err := loadConfigWithDeps(deps)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Type != ErrAlias {
		t.Errorf("Type = %q, want %q", cfgErr.Type, ErrAlias)
	}
}

func TestLoadConfigValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  ConfigErrorType
	}{
		{"invalid environment", "APP_ENV", "qa", ErrValidation},
		{"invalid log level", "LOG_LEVEL", "verbose", ErrValidation},
		{"bad base url", "DUTY_API_BASE_URL", "not a url", ErrValidation},
		{"bad email", "DUTY_API_EMAIL", "nobody", ErrValidation},
		{"unknown timezone", "DUTY_TIMEZONE", "Mars/Olympus_Mons", ErrValidation},
		{"bad cron spec", "DUTY_CRON_SPEC", "every minute", ErrValidation},
		{"zero max pages", "DUTY_API_MAX_PAGES", "0", ErrValidation},
		{"unparseable timeout", "DUTY_API_TIMEOUT", "soon", ErrParsing},
		{"breaker open longer than cadence", "DUTY_API_BREAKER_OPEN_TIMEOUT", "1m", ErrValidation},
		{"breaker open two minutes", "DUTY_API_BREAKER_OPEN_TIMEOUT", "2m", ErrValidation},
		{"zero breaker failures", "DUTY_API_BREAKER_FAILURES", "0", ErrValidation},
		{"unparseable metrics flag", "METRICS_ENABLED", "maybe", ErrParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredTestEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := loadConfigWithDeps(testDeps(t))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Type != tt.want {
				t.Errorf("Type = %q, want %q (err: %v)", cfgErr.Type, tt.want, err)
			}
		})
	}
}

func TestLoadConfigMissingPassword(t *testing.T) {
	setRequiredTestEnv(t)
	unsetForTest(t, "DUTY_API_PASSWORD")

	_, err := loadConfigWithDeps(testDeps(t))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
		t.Fatalf("expected validation ConfigError, got %v", err)
	}
}

func TestConfigErrorFormat(t *testing.T) {
	withCause := &ConfigError{Type: ErrParsing, Message: "bad", Err: errors.New("boom")}
	if got := withCause.Error(); got != "[PARSING_FAILED] bad: boom" {
		t.Errorf("Error() = %q", got)
	}
	bare := &ConfigError{Type: ErrValidation, Message: "bad"}
	if got := bare.Error(); got != "[VALIDATION_FAILED] bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestScheduleLocation(t *testing.T) {
	s := ScheduleConfig{Timezone: "America/New_York"}
	if got := s.Location().String(); got != "America/New_York" {
		t.Errorf("Location() = %q", got)
	}
	if got := (ScheduleConfig{Timezone: "Nope/Nowhere"}).Location(); got != time.UTC {
		t.Errorf("Location() fallback = %v, want UTC", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
