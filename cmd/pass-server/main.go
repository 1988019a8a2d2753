package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/cardpass/pass-issuer/internal/config"
	"github.com/cardpass/pass-issuer/internal/database"
	"github.com/cardpass/pass-issuer/internal/logger"
	"github.com/cardpass/pass-issuer/internal/server"
	"github.com/cardpass/pass-issuer/internal/version"
)

//	@title			pass-server
//	@description	pass-server issues signed wallet passes (.pkpass) for tenant card profiles.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded (see the Retry-After header)
//	@description	- `500` Internal server error
//	@description
//	@description	## Request Limits
//	@description	- **Global rate limiting**: requests per second across all callers (RATE_LIMIT_RPS, 0 disables)
//	@description	- **Issuance quota**: passes per identity per window (ISSUANCE_QUOTA / ISSUANCE_WINDOW)
//	@description	- **Request size limits**: MAX_REQUEST_SIZE, default 64KB
//	@description
//	@description	## Authentication
//	@description	Requests carry an API key (X-API-Key) and the caller identity, either as X-Tenant-ID / X-User-ID
//	@description	headers or as a bearer token issued by the configured identity provider.
//	@description
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	application/vnd.apple.pkpass

//	@tag.name			Passes
//	@tag.description	Pass issuance

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version)

func main() {
	cmd := &cobra.Command{
		Use:   "pass-server",
		Short: "Wallet pass issuance server",
		Long:  `pass-server builds, signs and packages wallet passes for tenant card profiles`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	// secrets (keystore passphrase, API keys, database password) are not logged
	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("KEYSTORE_PATH", cfg.KeystorePath),
		slog.String("PASS_TYPE_IDENTIFIER", cfg.PassTypeIdentifier),
		slog.String("RATE_LIMIT_STORE", cfg.RateLimitStore),
		slog.Int("ISSUANCE_QUOTA", cfg.IssuanceQuota),
		slog.Duration("ISSUANCE_WINDOW", cfg.IssuanceWindow),
		slog.Bool("DATABASE", cfg.DatabaseURL != ""),
		slog.Bool("IDENTITY_PROVIDER", cfg.IdentityJWKSURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = database.NewPool(ctx, database.PoolConfig{
			DatabaseURL:     cfg.DatabaseURL,
			MaxConns:        cfg.DBMaxConnections,
			MinConns:        cfg.DBMinConnections,
			MaxConnLifetime: cfg.DBMaxConnLifetime,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
			ConnectTimeout:  cfg.DBConnectTimeout,
			PingTimeout:     cfg.DatabasePingTimeout,
		})
		if err != nil {
			appLogger.Error("Unable to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Info("connected to PostgreSQL")

		if err := database.Migrate(ctx, pool); err != nil {
			appLogger.Error("Failed to apply database migrations", slog.String("error", err.Error()))
			pool.Close()
			os.Exit(1)
		}
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	server, err := server.NewServer(ctx, pool, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		if pool != nil {
			pool.Close()
		}
		os.Exit(1)
	}

	defer server.Shutdown()

	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
