package duty

import (
	"context"
	"log/slog"

	"dutyschedule/internal/config"
	"dutyschedule/internal/types"
)

// TokenIssuer is the slice of the duty API the Authenticator needs.
type TokenIssuer interface {
	Authenticate(ctx context.Context, email string, password types.SecretString) (types.SecretString, error)
}

// Authenticator exchanges the configured credentials for a bearer token.
type Authenticator struct {
	issuer   TokenIssuer
	email    string
	password types.SecretString
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator for the credentials in cfg.
func NewAuthenticator(issuer TokenIssuer, cfg config.APIConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		issuer:   issuer,
		email:    cfg.Email,
		password: cfg.Password,
		logger:   logger,
	}
}

// Authenticate makes exactly one call. On any failure it logs and returns an
// empty token with an ErrCodeAuthTokenMissing error so callers can short-circuit.
func (a *Authenticator) Authenticate(ctx context.Context) (types.SecretString, error) {
	log := types.LoggerFromContext(ctx, a.logger)

	if a.email == "" || a.password.IsZero() {
		err := types.NewAppError(types.ErrCodeAuthInvalidCreds, "service-account credentials are not configured", nil)
		log.ErrorContext(ctx, "authentication skipped", "error", err)
		return "", err
	}

	token, err := a.issuer.Authenticate(ctx, a.email, a.password)
	if err == nil && token.IsZero() {
		err = types.NewAppError(types.ErrCodeAuthTokenMissing, "auth endpoint returned an empty token", nil)
	}
	if err != nil {
		if types.CodeOf(err) != types.ErrCodeAuthTokenMissing {
			err = types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication failed", err)
		}
		log.ErrorContext(ctx, "authentication token not obtained",
			"email", a.email,
			"error", err,
		)
		return "", err
	}

	log.DebugContext(ctx, "authenticated against duty API", "email", a.email)
	return token, nil
}
