package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardpass/pass-issuer/internal/logger"
)

// PassUpdate describes a re-issued pass.
type PassUpdate struct {
	TenantID     string
	CardSerial   string
	SerialNumber string
	Version      int64
	UpdatedAt    time.Time
}

// Notifier is told when an existing pass changes so devices holding it can be asked to refresh.
type Notifier interface {
	PassUpdated(ctx context.Context, update PassUpdate) error
}

// LogNotifier records pass updates in the request log. It is used when no push channel is configured.
type LogNotifier struct{}

func (LogNotifier) PassUpdated(ctx context.Context, update PassUpdate) error {
	logger.ContextRequestLogger(ctx).Info("pass updated",
		slog.String("tenant_id", update.TenantID),
		slog.String("card_serial", update.CardSerial),
		slog.String("serial_number", update.SerialNumber),
		slog.Int64("version", update.Version),
	)
	return nil
}
