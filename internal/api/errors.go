package api

// errors.go maps pipeline errors to HTTP error responses.
//
// The response carries one human-readable message per error class. Messages written by the
// service for the caller (validation, auth and rate limit) are returned as details; for server
// side failures the details are generic, and the full error is only logged.

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/logger"
	"github.com/cardpass/pass-issuer/internal/pass"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error" example:"Validation failed"`
	Details   string `json:"details,omitempty" example:"name is required"`
	RequestID string `json:"request_id,omitempty" example:"host/abc123-000001"`

	statusCode int
	retryAfter time.Duration
}

// StatusCode returns the HTTP status code for the response.
func (e *ErrorResponse) StatusCode() int { return e.statusCode }

// RequestError is an error raised by the HTTP layer before the request reaches the issuance
// service (oversized or unreadable bodies).
type RequestError struct {
	statusCode int
	message    string
}

func (e *RequestError) Error() string { return e.message }

// NewRequestTooLargeError is used when the request body exceeds the configured limit.
func NewRequestTooLargeError(msg string) error {
	return &RequestError{statusCode: http.StatusRequestEntityTooLarge, message: msg}
}

// NewMalformedRequestError is used when the request body cannot be decoded.
func NewMalformedRequestError(msg string) error {
	return &RequestError{statusCode: http.StatusBadRequest, message: msg}
}

// MapErrorToResponse maps pass.PassError, crypto.CryptoError, RequestError or generic errors to an error response.
//
// Call this function to set up the error response before sending it to the client (using RespondWithErrorResponse).
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return &ErrorResponse{
			Error:      http.StatusText(reqErr.statusCode),
			Details:    reqErr.message,
			RequestID:  requestID,
			statusCode: reqErr.statusCode,
		}
	}

	var passErr *pass.PassError
	if errors.As(err, &passErr) {
		return errorResponseFromPass(passErr, requestID)
	}

	// keystore and signature failures that were not wrapped by the signer
	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		return &ErrorResponse{
			Error:      "Pass signing failed",
			Details:    "the pass could not be signed",
			RequestID:  requestID,
			statusCode: http.StatusInternalServerError,
		}
	}

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return &ErrorResponse{
		Error:      "Internal error",
		Details:    "an internal error occurred",
		RequestID:  requestID,
		statusCode: http.StatusInternalServerError,
	}
}

// errorResponseFromPass maps pass errors to API error responses
func errorResponseFromPass(err *pass.PassError, requestID string) *ErrorResponse {
	resp := &ErrorResponse{RequestID: requestID}

	switch err.Code() {
	case pass.ErrCodeValidation:
		resp.statusCode = http.StatusBadRequest
		resp.Error = "Validation failed"
		resp.Details = err.Message()
	case pass.ErrCodeAuth:
		resp.statusCode = http.StatusForbidden
		resp.Error = "Not authorized"
		resp.Details = err.Message()
	case pass.ErrCodeRateLimit:
		resp.statusCode = http.StatusTooManyRequests
		resp.Error = "Rate limit exceeded"
		resp.Details = err.Message()
		resp.retryAfter = err.RetryAfter()
	case pass.ErrCodeSigning:
		resp.statusCode = http.StatusInternalServerError
		resp.Error = "Pass signing failed"
		resp.Details = "the pass could not be signed"
	case pass.ErrCodeManifest:
		resp.statusCode = http.StatusInternalServerError
		resp.Error = "Manifest generation failed"
		resp.Details = "the pass manifest could not be built"
	case pass.ErrCodeArchive:
		resp.statusCode = http.StatusInternalServerError
		resp.Error = "Pass packaging failed"
		resp.Details = "the pass archive could not be built"
	case pass.ErrCodeAsset:
		resp.statusCode = http.StatusInternalServerError
		resp.Error = "Pass assets unavailable"
		resp.Details = "the pass images could not be loaded"
	default:
		resp.statusCode = http.StatusInternalServerError
		resp.Error = "Internal error"
		resp.Details = "an internal error occurred"
	}

	return resp
}
