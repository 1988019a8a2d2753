package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardpass/pass-issuer/internal/assets"
	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/issuance"
	"github.com/cardpass/pass-issuer/internal/pass"
	"github.com/cardpass/pass-issuer/internal/ratelimit"
	"github.com/cardpass/pass-issuer/internal/records"
	"github.com/cardpass/pass-issuer/internal/services"
)

// redisKeyPrefix namespaces the rate limit counters in a shared redis.
const redisKeyPrefix = "pass-issuer:"

// initIssuance creates the issuance service and its dependencies.
func (s *Server) initIssuance(ctx context.Context) error {
	signer, keystore, err := s.loadSigner()
	if err != nil {
		return err
	}

	tpl, err := pass.LoadTemplate(s.config.PassTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to load pass template: %w", err)
	}
	tpl = tpl.WithIdentifiers(s.config.PassTypeIdentifier, s.config.TeamIdentifier)

	// passes signed with another pass type's certificate are rejected by devices
	if certPassType := crypto.PassTypeIdentifierFromCertificate(keystore.Certificate()); certPassType != "" && certPassType != tpl.PassTypeIdentifier {
		return fmt.Errorf("pass type identifier %q does not match the signing certificate (%q)", tpl.PassTypeIdentifier, certPassType)
	}

	static, err := s.loadStaticAssets()
	if err != nil {
		return err
	}

	rateStore, err := s.newRateLimitStore(ctx)
	if err != nil {
		return err
	}
	s.rateStore = rateStore

	if s.pool != nil {
		s.recordsStore = records.NewPostgresStore(s.pool)
	} else {
		s.logger.Warn("DATABASE_URL is not set - pass records are kept in memory")
		s.recordsStore = records.NewMemoryStore()
	}

	svc, err := services.NewServices(ctx, s.config, s.logger)
	if err != nil {
		s.closeRateStore()
		return err
	}

	issuer, err := issuance.NewService(issuance.Deps{
		Template:      tpl,
		Assets:        assets.NewPipeline(static, assets.NewFetcher(s.config.ImageFetchTimeout, s.config.ImageMaxBytes)),
		Signer:        signer,
		Limiter:       ratelimit.NewLimiter(rateStore, s.config.IssuanceQuota, s.config.IssuanceWindow),
		Records:       s.recordsStore,
		Authenticator: svc.Authenticator,
		Notifier:      svc.Notifier,
		Logger:        s.logger,
		Timeout:       s.config.IssueTimeout,
	})
	if err != nil {
		s.closeRateStore()
		return err
	}
	s.issuer = issuer

	s.logger.Info("issuance service initialized",
		slog.String("pass_type_identifier", tpl.PassTypeIdentifier),
		slog.String("signer", signer.String()),
		slog.Int("issuance_quota", s.config.IssuanceQuota),
		slog.Duration("issuance_window", s.config.IssuanceWindow),
		slog.String("rate_limit_store", s.config.RateLimitStore),
	)
	return nil
}

// loadSigner imports the keystore once and clears the passphrase from the config.
func (s *Server) loadSigner() (*pass.KeystoreSigner, *crypto.Keystore, error) {
	keystore, err := crypto.ReadKeystoreFile(s.config.KeystorePath, s.config.KeystorePassphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load keystore: %w", err)
	}
	s.config.KeystorePassphrase = ""

	if s.config.WWDRCertPath != "" {
		intermediates, err := crypto.ReadCertChainFromPEMFile(s.config.WWDRCertPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load WWDR certificate: %w", err)
		}
		keystore = keystore.WithIntermediates(intermediates...)
	}

	if time.Until(keystore.Certificate().NotAfter) < 30*24*time.Hour {
		s.logger.Warn("signing certificate expires soon",
			slog.Time("not_after", keystore.Certificate().NotAfter))
	}

	signer, err := pass.NewKeystoreSigner(keystore)
	if err != nil {
		return nil, nil, err
	}
	return signer, keystore, nil
}

// loadStaticAssets reads the static images now so a broken asset directory stops start up.
func (s *Server) loadStaticAssets() (*assets.StaticAssets, error) {
	static := assets.BundledStaticAssets()
	if s.config.PassAssetsDir != "" {
		dirAssets, err := assets.DirStaticAssets(s.config.PassAssetsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open pass assets directory: %w", err)
		}
		static = dirAssets
	}

	names, err := static.Names()
	if err != nil {
		return nil, fmt.Errorf("failed to load static assets: %w", err)
	}
	s.logger.Info("static assets loaded", slog.Any("assets", names))
	return static, nil
}

func (s *Server) newRateLimitStore(ctx context.Context) (ratelimit.Store, error) {
	switch s.config.RateLimitStore {
	case "redis":
		store, err := ratelimit.NewRedisStoreFromURL(ctx, s.config.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	default:
		return ratelimit.NewMemoryStore(time.Minute), nil
	}
}
