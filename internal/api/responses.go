package api

// responses.go provides helper functions for sending HTTP responses from the handlers.

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/cardpass/pass-issuer/internal/logger"
)

// RespondWithErrorResponse sends an error response as a JSON payload.
//
// It logs the full error details server-side and sends a sanitized response to the client.
// Rate limit responses include a Retry-After header (whole seconds, rounded up).
func RespondWithErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse := MapErrorToResponse(err, r)

	reqLogger := logger.ContextRequestLogger(r.Context())
	level := slog.LevelWarn
	if errorResponse.statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	reqLogger.Log(r.Context(), level, "Request failed",
		slog.String("error", err.Error()),
		slog.Int("status_code", errorResponse.statusCode),
		slog.String("error_text", errorResponse.Error),
		slog.String("request_id", errorResponse.RequestID),
	)

	if errorResponse.retryAfter > 0 {
		seconds := int(math.Ceil(errorResponse.retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	RespondWithJSONPayload(w, errorResponse.statusCode, errorResponse)
}

// RespondWithJSONPayload sends a JSON response with the given status code
func RespondWithJSONPayload(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			// If encoding fails, log it but don't try to send another response
			// (headers are already written)
			slog.Error("Failed to encode JSON response",
				slog.String("error", err.Error()),
			)
		}
	}
}

// RespondWithBinary sends a binary payload with the given content type.
func RespondWithBinary(w http.ResponseWriter, statusCode int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write response body",
			slog.String("error", err.Error()),
		)
	}
}
