package services

// identity_provider.go resolves caller identities from bearer tokens issued by an external identity provider.
//
// Tokens are JWTs signed with a key published in the provider's JWKS. The key set is held in a
// jwk.Cache and refreshed in the background.
//
// Identity claims:
//   - tenant_id: the tenant the caller belongs to
//   - sub: the user id

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/cardpass/pass-issuer/internal/pass"
)

// TenantClaim is the JWT claim carrying the tenant id.
const TenantClaim = "tenant_id"

// JWTProviderConfig configures a JWTIdentityProvider.
type JWTProviderConfig struct {
	JWKSURL string

	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	MinRefreshInterval time.Duration
	MaxRefreshInterval time.Duration

	// AcceptableSkew is the clock skew allowed when checking exp, nbf and iat.
	AcceptableSkew time.Duration

	// WaitReady blocks construction until the first fetch of the key set succeeds.
	WaitReady bool
}

// JWTIdentityProvider verifies bearer tokens against a cached JWKS.
type JWTIdentityProvider struct {
	config   JWTProviderConfig
	jwkCache *jwk.Cache
	logger   *slog.Logger
}

// NewJWTIdentityProvider creates the key set cache and registers the JWKS endpoint.
//
// The cache goroutines stop when ctx is cancelled.
func NewJWTIdentityProvider(ctx context.Context, cfg JWTProviderConfig, logger *slog.Logger) (*JWTIdentityProvider, error) {
	u, err := url.Parse(cfg.JWKSURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("JWKS URL %q must be an absolute http(s) URL", cfg.JWKSURL)
	}

	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = 5 * time.Minute
	}
	if cfg.MaxRefreshInterval < cfg.MinRefreshInterval {
		cfg.MaxRefreshInterval = cfg.MinRefreshInterval * 12
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := httprc.NewClient()

	cache, err := jwk.NewCache(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK cache: %w", err)
	}

	err = cache.Register(ctx, cfg.JWKSURL,
		jwk.WithMinInterval(cfg.MinRefreshInterval),
		jwk.WithMaxInterval(cfg.MaxRefreshInterval),
		jwk.WithWaitReady(cfg.WaitReady),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register JWKS endpoint %s: %w", cfg.JWKSURL, err)
	}

	logger.Info("registered identity provider JWKS",
		slog.String("url", cfg.JWKSURL),
		slog.Duration("min_refresh", cfg.MinRefreshInterval),
		slog.Duration("max_refresh", cfg.MaxRefreshInterval),
	)

	return &JWTIdentityProvider{config: cfg, jwkCache: cache, logger: logger}, nil
}

// Identify verifies token and returns the identity it carries.
//
// A key set that cannot be fetched is an internal error; everything wrong with the token itself
// is an auth error.
func (p *JWTIdentityProvider) Identify(ctx context.Context, token string) (Identity, error) {
	keySet, err := p.jwkCache.Lookup(ctx, p.config.JWKSURL)
	if err != nil {
		return Identity{}, pass.WrapInternalError(err, "identity provider keys are unavailable")
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(p.config.AcceptableSkew),
	}
	if p.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.config.Issuer))
	}
	if p.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(p.config.Audience))
	}

	tok, err := jwt.ParseString(token, opts...)
	if err != nil {
		p.logger.Debug("bearer token rejected", slog.String("error", err.Error()))
		return Identity{}, pass.NewAuthError("bearer token is invalid")
	}

	return identityFromToken(tok)
}

func identityFromToken(tok jwt.Token) (Identity, error) {
	subject, ok := tok.Subject()
	if !ok || !validIdentifier(subject) {
		return Identity{}, pass.NewAuthError("bearer token has no valid sub claim")
	}

	var tenant string
	if err := tok.Get(TenantClaim, &tenant); err != nil || !validIdentifier(tenant) {
		return Identity{}, pass.NewAuthError("bearer token has no valid tenant_id claim")
	}

	return Identity{TenantID: tenant, UserID: subject, Method: "token"}, nil
}
