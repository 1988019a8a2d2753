package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cardpass/pass-issuer/internal/config"
)

// Services aggregates the collaborators used by the issuance service.
type Services struct {
	Authenticator Authenticator
	Notifier      Notifier

	// IdentityProvider is nil when bearer tokens are not accepted.
	IdentityProvider IdentityProvider
}

// NewServices creates service implementations based on configuration.
// This is the single entry point for initializing all external service integrations.
func NewServices(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*Services, error) {
	keys, err := ParseAPIKeys(cfg.APIKeys)
	if err != nil {
		return nil, fmt.Errorf("invalid API_KEYS: %w", err)
	}

	s := &Services{Notifier: LogNotifier{}}

	var provider IdentityProvider
	if cfg.IdentityJWKSURL != "" {
		jwtProvider, err := NewJWTIdentityProvider(ctx, JWTProviderConfig{
			JWKSURL:            cfg.IdentityJWKSURL,
			Issuer:             cfg.IdentityIssuer,
			Audience:           cfg.IdentityAudience,
			MinRefreshInterval: cfg.JWKCacheMinRefresh,
			MaxRefreshInterval: cfg.JWKCacheMaxRefresh,
			AcceptableSkew:     cfg.TokenClockSkew,
		}, logger)
		if err != nil {
			return nil, err
		}
		provider = jwtProvider
		s.IdentityProvider = jwtProvider
	}

	s.Authenticator = NewAuthenticator(keys, provider)

	logger.Info("services initialised",
		slog.Int("api_keys", keys.Len()),
		slog.Bool("bearer_tokens", provider != nil),
	)
	return s, nil
}
