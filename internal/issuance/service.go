package issuance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardpass/pass-issuer/internal/assets"
	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/logger"
	"github.com/cardpass/pass-issuer/internal/pass"
	"github.com/cardpass/pass-issuer/internal/ratelimit"
	"github.com/cardpass/pass-issuer/internal/records"
	"github.com/cardpass/pass-issuer/internal/services"
)

// DefaultTimeout bounds one issuance when Deps.Timeout is not set.
const DefaultTimeout = 30 * time.Second

// AssetResolver provides the image members of a pass.
type AssetResolver interface {
	Resolve(ctx context.Context, imageURL string) (assets.Resolved, error)
}

// RateLimiter decides whether an identity may issue another pass.
type RateLimiter interface {
	Allow(ctx context.Context, identity string) (ratelimit.Decision, error)
}

// Deps are the collaborators of a Service. Template, Assets, Signer and Authenticator are required.
type Deps struct {
	Template      *pass.Template
	Assets        AssetResolver
	Signer        pass.Signer
	Limiter       RateLimiter
	Records       records.Store
	Authenticator services.Authenticator
	Notifier      services.Notifier
	Logger        *slog.Logger
	Observer      Observer
	Timeout       time.Duration
}

// Service issues signed passes.
type Service struct {
	template      *pass.Template
	assets        AssetResolver
	signer        pass.Signer
	limiter       RateLimiter
	records       records.Store
	authenticator services.Authenticator
	notifier      services.Notifier
	logger        *slog.Logger
	observer      Observer
	timeout       time.Duration
	now           func() time.Time
}

// NewService checks the dependencies and returns a Service.
//
// A nil Limiter disables the per-identity quota, a nil Records store keeps records in memory,
// and a nil Notifier logs pass updates.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Template == nil:
		return nil, errors.New("issuance: pass template is required")
	case deps.Assets == nil:
		return nil, errors.New("issuance: asset resolver is required")
	case deps.Signer == nil:
		return nil, errors.New("issuance: signer is required")
	case deps.Authenticator == nil:
		return nil, errors.New("issuance: authenticator is required")
	}

	if err := deps.Template.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		template:      deps.Template,
		assets:        deps.Assets,
		signer:        deps.Signer,
		limiter:       deps.Limiter,
		records:       deps.Records,
		authenticator: deps.Authenticator,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		observer:      deps.Observer,
		timeout:       deps.Timeout,
		now:           time.Now,
	}

	if s.records == nil {
		s.records = records.NewMemoryStore()
	}
	if s.notifier == nil {
		s.notifier = services.LogNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}

	return s, nil
}

// Action says whether an issuance created a new pass or replaced an existing one.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Result is a successfully issued pass.
type Result struct {
	Archive   *pass.Archive
	Action    Action
	Identity  services.Identity
	Record    records.PassRecord
	RateLimit ratelimit.Decision

	// Thumbnail is false when the pass was built without the profile image.
	Thumbnail bool
}

// Authenticate verifies the caller credentials.
func (s *Service) Authenticate(ctx context.Context, creds services.Credentials) (services.Identity, error) {
	identity, err := s.authenticator.Authenticate(ctx, creds)
	if err != nil {
		var passErr *pass.PassError
		if errors.As(err, &passErr) {
			return services.Identity{}, err
		}
		return services.Identity{}, pass.WrapAuthError(err, "authentication failed")
	}
	return identity, nil
}

// Issue runs the issuance pipeline for one card profile.
//
// On success the returned archive is complete and signed. On failure the result is nil and the
// error is a *pass.PassError naming the failed stage's class.
func (s *Service) Issue(ctx context.Context, creds services.Credentials, profile pass.CardProfile) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqLogger := logger.ContextRequestLogger(ctx)
	s.reached(ctx, StageReceived)

	identity, err := s.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	logger.ContextWithLogAttrs(ctx,
		slog.String("tenant_id", identity.TenantID),
		slog.String("user_id", identity.UserID),
	)
	s.reached(ctx, StageAuthChecked)

	var decision ratelimit.Decision
	if s.limiter != nil {
		decision, err = s.limiter.Allow(ctx, identity.Key())
		if err != nil {
			return nil, err
		}
	}
	s.reached(ctx, StageRateLimitChecked)

	profile = profile.Normalized()
	if profile.TenantID != "" && profile.TenantID != identity.TenantID {
		return nil, pass.NewAuthError("tenant in the request does not match the authenticated tenant")
	}

	descriptor, err := pass.BuildDescriptor(s.template, profile)
	if err != nil {
		return nil, err
	}

	existing, err := s.records.Lookup(ctx, profile.TenantID, profile.CardSerial)
	switch {
	case errors.Is(err, records.ErrNotFound):
		existing = records.PassRecord{}
	case err != nil:
		return nil, pass.WrapInternalError(err, "failed to look up pass record")
	}

	if s.template.WebServiceURL != "" {
		descriptor.AuthenticationToken = existing.AuthenticationToken
		if descriptor.AuthenticationToken == "" {
			descriptor.AuthenticationToken = newAuthenticationToken()
		}
	}

	descriptorJSON, err := descriptor.Encode()
	if err != nil {
		return nil, err
	}
	s.reached(ctx, StageDescriptorBuilt)

	resolved, err := s.assets.Resolve(ctx, profile.ImageURL)
	if err != nil {
		return nil, err
	}
	s.reached(ctx, StageAssetsResolved)

	files := make(map[string][]byte, len(resolved.Files)+1)
	for name, data := range resolved.Files {
		files[name] = data
	}
	files[pass.DescriptorMember] = descriptorJSON

	// members is frozen from here: the manifest, signature and archive all read the same bytes
	members := pass.NewMembers(files)

	manifest, manifestJSON, err := pass.BuildManifest(members)
	if err != nil {
		return nil, err
	}
	s.reached(ctx, StageManifestBuilt)

	signature, err := s.signer.Sign(ctx, manifestJSON)
	if err != nil {
		if pass.CodeOf(err) == pass.ErrCodeInternal && ctx.Err() == nil {
			return nil, pass.WrapSigningError(err, "failed to sign manifest")
		}
		return nil, err
	}
	s.reached(ctx, StageSigned)

	archive, err := pass.BuildArchive(members, manifestJSON, signature)
	if err != nil {
		return nil, err
	}
	s.reached(ctx, StageArchived)

	if err := ctx.Err(); err != nil {
		return nil, pass.WrapInternalError(err, "issuance did not complete in time")
	}

	record, err := s.records.Save(ctx, records.PassRecord{
		TenantID:            profile.TenantID,
		CardSerial:          profile.CardSerial,
		SerialNumber:        descriptor.SerialNumber,
		AuthenticationToken: descriptor.AuthenticationToken,
		ManifestChecksum:    crypto.CalculateSHA256Hex(manifestJSON),
		UpdatedAt:           s.now().UTC(),
	})
	if err != nil {
		return nil, pass.WrapInternalError(err, "failed to save pass record")
	}

	action := ActionCreated
	if !record.Created() {
		action = ActionUpdated
		update := services.PassUpdate{
			TenantID:     record.TenantID,
			CardSerial:   record.CardSerial,
			SerialNumber: record.SerialNumber,
			Version:      record.Version,
			UpdatedAt:    record.UpdatedAt,
		}
		// devices refresh on their own schedule if the hook fails
		if err := s.notifier.PassUpdated(ctx, update); err != nil {
			reqLogger.Warn("pass update notification failed", slog.String("error", err.Error()))
		}
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("serial_number", archive.SerialNumber),
		slog.String("pass_action", string(action)),
		slog.Int("manifest_entries", len(manifest)),
		slog.Int("archive_bytes", len(archive.Bytes)),
	)
	s.reached(ctx, StageResponded)

	return &Result{
		Archive:   archive,
		Action:    action,
		Identity:  identity,
		Record:    record,
		RateLimit: decision,
		Thumbnail: resolved.HasThumbnail(),
	}, nil
}

// Ready reports whether the service can issue passes: the signer is usable and the record store
// is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if checker, ok := s.signer.(interface{ CheckReady() error }); ok {
		if err := checker.CheckReady(); err != nil {
			return err
		}
	}
	if err := s.records.Ping(ctx); err != nil {
		return pass.WrapInternalError(err, "pass record store is unavailable")
	}
	return nil
}

// newAuthenticationToken returns a random token for the pass web service.
func newAuthenticationToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
