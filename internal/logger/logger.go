// Package logger configures the service's slog loggers.
//
// Development and test environments log coloured, human readable lines (tint); prod and staging
// log JSON. Each request gets its own logger, stored in the request context, carrying the request
// id. Handlers can add attributes that are included in the final "request completed" log line.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LevelNone disables logging.
const LevelNone = slog.Level(100)

// InitLogger returns the application logger for environment and sets it as the slog default.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	return initLogger(os.Stderr, level, environment)
}

func initLogger(w io.Writer, level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler

	switch {
	case level >= LevelNone:
		handler = slog.DiscardHandler
	case environment == "prod" || environment == "staging":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// ParseLogLevel converts a LOG_LEVEL value (debug, info, warn, error, none) to a slog.Level.
// Unknown values default to debug.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		return LevelNone
	default:
		return slog.LevelDebug
	}
}

type contextKey int

const (
	loggerKey contextKey = iota
	attrsKey
)

// logAttrs collects attributes for the final request log line. Handlers and middleware may add
// to it from different goroutines.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogger returns a context carrying a request-scoped logger and an empty
// attribute collector.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, loggerKey, l)
	return context.WithValue(ctx, attrsKey, &logAttrs{})
}

// ContextRequestLogger returns the request logger stored in ctx, or the default logger.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ContextWithLogAttrs adds attributes to the final request log line.
// It does nothing if ctx was not created by ContextWithLogger.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	holder, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return
	}
	holder.mu.Lock()
	holder.attrs = append(holder.attrs, attrs...)
	holder.mu.Unlock()
}

// ContextLogAttrs returns a copy of the attributes added with ContextWithLogAttrs.
func ContextLogAttrs(ctx context.Context) []slog.Attr {
	holder, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return nil
	}
	holder.mu.Lock()
	defer holder.mu.Unlock()
	return append([]slog.Attr(nil), holder.attrs...)
}
