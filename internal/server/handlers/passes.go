package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cardpass/pass-issuer/internal/api"
	"github.com/cardpass/pass-issuer/internal/issuance"
	"github.com/cardpass/pass-issuer/internal/pass"
	"github.com/cardpass/pass-issuer/internal/services"
)

// Request headers carrying the caller credentials.
const (
	HeaderAPIKey   = "X-API-Key"
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// Response headers describing the issued pass.
const (
	HeaderPassAction         = "X-Pass-Action"
	HeaderPassSerial         = "X-Pass-Serial"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// PassIssuer issues passes. Implemented by issuance.Service.
type PassIssuer interface {
	Issue(ctx context.Context, creds services.Credentials, profile pass.CardProfile) (*issuance.Result, error)
}

// HandleIssuePass godoc
//
//	@Summary		Issue a wallet pass
//	@Description	Builds, signs and returns a wallet pass for a business card.
//	@Description
//	@Description	Issuing a pass again for the same tenant and card serial returns a pass with the same
//	@Description	serial number, which replaces the earlier pass on devices (X-Pass-Action: updated).
//	@Description
//	@Description	If the profile image cannot be fetched the pass is issued without a thumbnail.
//	@Tags			Passes
//	@Accept			json
//	@Produce		application/vnd.apple.pkpass
//	@Param			X-API-Key	header		string					true	"API key"
//	@Param			X-Tenant-ID	header		string					false	"Tenant id (required unless a bearer token is sent)"
//	@Param			X-User-ID	header		string					false	"User id (required unless a bearer token is sent)"
//	@Param			request		body		api.IssuePassRequest	true	"Card profile"
//	@Success		200			{file}		binary					"Signed pass archive"
//	@Failure		400			{object}	api.ErrorResponse		"Invalid card profile"
//	@Failure		403			{object}	api.ErrorResponse		"Invalid credentials"
//	@Failure		413			{object}	api.ErrorResponse		"Request too large"
//	@Failure		429			{object}	api.ErrorResponse		"Issuance quota exceeded"
//	@Failure		500			{object}	api.ErrorResponse		"Pass could not be built"
//	@Router			/v1/passes [post]
func HandleIssuePass(issuer PassIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var profile pass.CardProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				api.RespondWithErrorResponse(w, r, api.NewRequestTooLargeError(
					fmt.Sprintf("request body exceeds maximum allowed size (%d bytes)", maxBytesErr.Limit),
				))
				return
			}
			api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("request body must be a JSON card profile"))
			return
		}

		result, err := issuer.Issue(r.Context(), credentialsFromRequest(r), profile)
		if err != nil {
			api.RespondWithErrorResponse(w, r, err)
			return
		}

		archive := result.Archive
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename))
		w.Header().Set(HeaderPassAction, string(result.Action))
		w.Header().Set(HeaderPassSerial, archive.SerialNumber)
		if result.RateLimit.Limit > 0 {
			w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(result.RateLimit.Limit))
			w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(result.RateLimit.Remaining))
		}

		api.RespondWithBinary(w, http.StatusOK, archive.ContentType, archive.Bytes)
	}
}

func credentialsFromRequest(r *http.Request) services.Credentials {
	creds := services.Credentials{
		APIKey:   strings.TrimSpace(r.Header.Get(HeaderAPIKey)),
		TenantID: strings.TrimSpace(r.Header.Get(HeaderTenantID)),
		UserID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
	}

	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		creds.BearerToken = strings.TrimSpace(token)
	}
	return creds
}
