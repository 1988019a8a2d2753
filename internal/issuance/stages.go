package issuance

import (
	"context"
	"log/slog"

	"github.com/cardpass/pass-issuer/internal/logger"
)

// Stage is a step of the issuance pipeline.
type Stage string

const (
	StageReceived         Stage = "received"
	StageAuthChecked      Stage = "auth_checked"
	StageRateLimitChecked Stage = "rate_limit_checked"
	StageDescriptorBuilt  Stage = "descriptor_built"
	StageAssetsResolved   Stage = "assets_resolved"
	StageManifestBuilt    Stage = "manifest_built"
	StageSigned           Stage = "signed"
	StageArchived         Stage = "archived"
	StageResponded        Stage = "responded"
)

// Observer is told each time a request reaches a stage.
type Observer interface {
	StageReached(ctx context.Context, stage Stage)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(ctx context.Context, stage Stage)

func (f ObserverFunc) StageReached(ctx context.Context, stage Stage) { f(ctx, stage) }

func (s *Service) reached(ctx context.Context, stage Stage) {
	logger.ContextRequestLogger(ctx).Debug("issuance stage", slog.String("stage", string(stage)))
	if s.observer != nil {
		s.observer.StageReached(ctx, stage)
	}
}
