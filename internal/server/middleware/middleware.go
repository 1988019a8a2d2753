package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/cardpass/pass-issuer/internal/api"
	"github.com/cardpass/pass-issuer/internal/logger"
	"github.com/cardpass/pass-issuer/internal/pass"
)

// RequestLogging attaches a request-scoped logger to the context and writes one log line per
// request when it completes. Handlers add fields to that line with logger.ContextWithLogAttrs.
//
// It must run after chi's RequestID and RealIP middleware.
func RequestLogging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := base.With(
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			ctx := logger.ContextWithLogger(r.Context(), reqLogger)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			attrs = append(attrs, logger.ContextLogAttrs(ctx)...)

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			reqLogger.LogAttrs(ctx, level, "request completed", attrs...)
		})
	}
}

// RequestSizeLimit returns a middleware that enforces a maximum request body size.
//
// the middleware immediately rejects requests where the Content-Length header is greater than the max size.
// Otherwise the body is wrapped in a MaxBytesReader and the handler returns a 413 if it reads past the limit
// (in case Content-Length is not set or incorrect)
//
// The middleware adds an X-Max-Request-Size header to all responses to inform clients
// of the server's size limit
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Add informative header to all responses
			w.Header().Set("X-Max-Request-Size", strconv.FormatInt(maxBytes, 10))

			// Check Content-Length header for early rejection
			if r.ContentLength > maxBytes {
				err := api.NewRequestTooLargeError(
					fmt.Sprintf("Request body size (%d bytes) exceeds maximum allowed size (%d bytes)", r.ContentLength, maxBytes),
				)
				api.RespondWithErrorResponse(w, r, err)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds security-related headers to all responses
func SecurityHeaders(environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// issued passes carry personal data
			w.Header().Set("Cache-Control", "no-store")

			if environment == "prod" || environment == "staging" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per second across all callers. If requestsPerSecond <= 0, rate limiting is disabled.
//
// This protects the service as a whole; per caller issuance quotas are enforced by the issuance service.
func RateLimit(requestsPerSecond int32, burst int32) func(http.Handler) http.Handler {
	// If rate limiting is disabled, return a no-op middleware
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				reqLogger := logger.ContextRequestLogger(r.Context())

				// Log rate limit violation immediately
				reqLogger.Warn("Rate limit exceeded",
					slog.String("component", "RateLimit"),
					slog.String("remote_addr", r.RemoteAddr),
				)

				// Add context for final request log
				logger.ContextWithLogAttrs(r.Context(),
					slog.String("rate_limited", "global"),
				)

				err := pass.NewRateLimitError("Too many requests. Please try again later.", time.Second)
				api.RespondWithErrorResponse(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
