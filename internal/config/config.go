package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// ServerShutdownTimeout bounds graceful shutdown of the http server.
const ServerShutdownTimeout = 10 * time.Second

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment    string        `env:"ENVIRONMENT,default=dev"`
	Host           string        `env:"HOST,default=0.0.0.0"`
	Port           int           `env:"PORT,default=8080"`
	LogLevel       string        `env:"LOG_LEVEL,default=debug"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=60s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS   int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize int64         `env:"MAX_REQUEST_SIZE,default=65536"`

	// issuance settings
	IssueTimeout      time.Duration `env:"ISSUE_TIMEOUT,default=30s"`
	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT,default=5s"`
	ImageMaxBytes     int64         `env:"IMAGE_MAX_BYTES,default=5242880"`
	IssuanceQuota     int           `env:"ISSUANCE_QUOTA,default=10"`
	IssuanceWindow    time.Duration `env:"ISSUANCE_WINDOW,default=1h"`

	// rate limit counter store: "memory" or "redis"
	RateLimitStore string `env:"RATE_LIMIT_STORE,default=memory"`
	RedisURL       string `env:"REDIS_URL"`

	// pass template and assets (empty = bundled defaults)
	PassTemplatePath   string `env:"PASS_TEMPLATE_PATH"`
	PassAssetsDir      string `env:"PASS_ASSETS_DIR"`
	PassTypeIdentifier string `env:"PASS_TYPE_IDENTIFIER"`
	TeamIdentifier     string `env:"TEAM_IDENTIFIER"`

	// identity provider settings (optional - bearer tokens are rejected when IDENTITY_JWKS_URL is not set)
	IdentityJWKSURL  string        `env:"IDENTITY_JWKS_URL"`
	IdentityIssuer   string        `env:"IDENTITY_ISSUER"`
	IdentityAudience string        `env:"IDENTITY_AUDIENCE"`
	TokenClockSkew   time.Duration `env:"TOKEN_CLOCK_SKEW,default=30s"`

	// JWK cache settings
	JWKCacheMinRefresh time.Duration `env:"JWK_CACHE_MIN_REFRESH,default=10m"`
	JWKCacheMaxRefresh time.Duration `env:"JWK_CACHE_MAX_REFRESH,default=12h"`

	// database settings (optional - pass records are kept in memory when DATABASE_URL is not set)
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// Required signing configuration - must be set by environment variables
	KeystorePath       string `env:"KEYSTORE_PATH,required=true"`
	KeystorePassphrase string `env:"KEYSTORE_PASSPHRASE,required=true"`
	WWDRCertPath       string `env:"WWDR_CERT_PATH"`
	APIKeys            string `env:"API_KEYS,required=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validRateLimitStores = map[string]bool{
	"memory": true,
	"redis":  true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	if cfg.MaxRequestSize < 1024 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1024 bytes")
	}
	if cfg.IssueTimeout <= 0 {
		return fmt.Errorf("ISSUE_TIMEOUT must be positive")
	}
	if cfg.ImageFetchTimeout <= 0 || cfg.ImageFetchTimeout > cfg.IssueTimeout {
		return fmt.Errorf("IMAGE_FETCH_TIMEOUT must be positive and no longer than ISSUE_TIMEOUT")
	}
	if cfg.ImageMaxBytes < 1 {
		return fmt.Errorf("IMAGE_MAX_BYTES must be at least 1")
	}

	// ISSUANCE_QUOTA of 0 disables the per-identity limit
	if cfg.IssuanceQuota < 0 {
		return fmt.Errorf("ISSUANCE_QUOTA must be 0 or greater")
	}
	if cfg.IssuanceWindow < time.Second {
		return fmt.Errorf("ISSUANCE_WINDOW must be at least 1s")
	}

	cfg.RateLimitStore = strings.ToLower(cfg.RateLimitStore)
	if !validRateLimitStores[cfg.RateLimitStore] {
		return fmt.Errorf("invalid RATE_LIMIT_STORE: %s (expected memory or redis)", cfg.RateLimitStore)
	}
	if cfg.RateLimitStore == "redis" && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE is redis")
	}

	if cfg.IdentityJWKSURL != "" {
		u, err := url.Parse(cfg.IdentityJWKSURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("IDENTITY_JWKS_URL must be an absolute URL")
		}
		if u.Scheme != "https" && cfg.Environment == "prod" {
			return fmt.Errorf("IDENTITY_JWKS_URL must use https in prod")
		}
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	return nil
}
