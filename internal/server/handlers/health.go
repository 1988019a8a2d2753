package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cardpass/pass-issuer/internal/api"
	"github.com/cardpass/pass-issuer/internal/logger"
)

// HandleHealth godoc
//
//	@Summary		Health (liveness) Check
//	@Description	Check if the HTTP service is alive and responding.
//	@Tags			Common
//	@Produce		plain
//
//	@Success		200	{string}	string	"OK"
//
//	@Router			/health/live [get]
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ReadinessCheck reports whether a dependency is ready.
type ReadinessCheck func(ctx context.Context) error

// HandleReadiness godoc
//
//	@Summary		Readiness Check
//	@Description	Checks if the service is ready to issue passes (signing certificate valid, pass record store reachable)
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	api.ReadinessResponse	"status ready"
//	@Failure		503	{object}	api.ReadinessResponse	"status not ready"
//	@Router			/health/ready [get]
func HandleReadiness(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := api.ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK

		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.ContextRequestLogger(r.Context()).Warn("readiness check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
				resp.Checks[name] = "unavailable"
				resp.Status = "not ready"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		api.RespondWithJSONPayload(w, status, resp)
	}
}
