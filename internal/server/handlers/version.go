package handlers

import (
	"net/http"

	"github.com/cardpass/pass-issuer/internal/api"
	"github.com/cardpass/pass-issuer/internal/version"
)

// HandleVersion godoc
//
//	@Summary		Get version information
//	@Description	Returns the version and build information for the service
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	api.VersionResponse	"Version information"
//	@Router			/version [get]
func HandleVersion(service string) http.HandlerFunc {
	v := version.Get()

	// Pre-create the response to avoid allocating on every request
	response := api.VersionResponse{
		Version:   v.Version,
		BuildDate: v.BuildDate,
		GitCommit: v.GitCommit,
		Service:   service,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithJSONPayload(w, http.StatusOK, response)
	}
}
