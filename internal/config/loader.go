// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC as the process timezone; schedule math uses Schedule.Location().
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Copy legacy variable names (BASE_API_URL, USER_EMAIL, ...) onto their
//     current names when the current name is unset.
//  4. Use envconfig to process struct tags and populate the Config struct.
//  5. Populate BuildInfo from linker-injected variables.
//  6. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"dutyschedule/internal/cronrunner"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// legacyAliases maps current variable names to the names the first
// deployment of the duty Lambda used.
var legacyAliases = map[string]string{
	"DUTY_API_BASE_URL": "BASE_API_URL",
	"DUTY_API_EMAIL":    "USER_EMAIL",
	"DUTY_API_PASSWORD": "USER_PASSWORD",
	"DUTY_TIMEZONE":     "TIMEZONE",
}

type envLookup func(key string) (string, bool)

type envSet func(key, value string) error

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without mutating global state.
type loaderDeps struct {
	lookupEnv envLookup
	setEnv    envSet
	dotenv    func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// LoadConfig loads and validates the configuration from the environment.
func LoadConfig() (*Config, error) {
	return loadConfigWithDeps(defaultDeps())
}

func loadConfigWithDeps(deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv does NOT override variables that are already set.
	_ = deps.dotenv()

	if err := applyLegacyAliases(deps); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	cfg.Build = NewBuildInfo()

	if err := newValidator().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// applyLegacyAliases copies each legacy variable onto its current name when
// only the legacy one is present. The current name always wins.
func applyLegacyAliases(deps loaderDeps) error {
	for current, legacy := range legacyAliases {
		if _, exists := deps.lookupEnv(current); exists {
			continue
		}
		value, ok := deps.lookupEnv(legacy)
		if !ok || value == "" {
			continue
		}
		if err := deps.setEnv(current, value); err != nil {
			return &ConfigError{
				Type:    ErrAlias,
				Message: fmt.Sprintf("failed to copy %s to %s", legacy, current),
				Err:     err,
			}
		}
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tzname", func(fl validator.FieldLevel) bool {
		_, err := time.LoadLocation(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cronrunner.Parser.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// SlogLevel maps LogLevel onto a slog.Level. Validation restricts LogLevel to
// the four names handled here.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
