package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cardpass/pass-issuer/internal/api"
	"github.com/cardpass/pass-issuer/internal/issuance"
	"github.com/cardpass/pass-issuer/internal/pass"
	"github.com/cardpass/pass-issuer/internal/ratelimit"
	"github.com/cardpass/pass-issuer/internal/server/middleware"
	"github.com/cardpass/pass-issuer/internal/services"
)

// stubIssuer records the request and returns a fixed result or error.
type stubIssuer struct {
	result  *issuance.Result
	err     error
	creds   services.Credentials
	profile pass.CardProfile
	calls   int
}

func (s *stubIssuer) Issue(ctx context.Context, creds services.Credentials, profile pass.CardProfile) (*issuance.Result, error) {
	s.calls++
	s.creds = creds
	s.profile = profile
	return s.result, s.err
}

func issuedResult() *issuance.Result {
	return &issuance.Result{
		Archive: &pass.Archive{
			Bytes:        []byte("PK\x03\x04archive"),
			ContentType:  pass.ContentType,
			Filename:     "serial-1.pkpass",
			SerialNumber: "serial-1",
		},
		Action:    issuance.ActionUpdated,
		RateLimit: ratelimit.Decision{Allowed: true, Limit: 10, Remaining: 7},
	}
}

const profileJSON = `{"tenantId":"acme","cardSerial":"abc123","name":"Jane Doe","publicURL":"https://cards.example.com/acme/abc123"}`

func TestHandleIssuePass(t *testing.T) {
	issuer := &stubIssuer{result: issuedResult()}

	req := httptest.NewRequest(http.MethodPost, "/v1/passes", strings.NewReader(profileJSON))
	req.Header.Set(HeaderAPIKey, " key-1 ")
	req.Header.Set(HeaderTenantID, "acme")
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set("Authorization", "Bearer token-1")

	rr := httptest.NewRecorder()
	HandleIssuePass(issuer).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	wantHeaders := map[string]string{
		"Content-Type":           pass.ContentType,
		"Content-Disposition":    `attachment; filename="serial-1.pkpass"`,
		HeaderPassAction:         "updated",
		HeaderPassSerial:         "serial-1",
		HeaderRateLimitLimit:     "10",
		HeaderRateLimitRemaining: "7",
	}
	for name, want := range wantHeaders {
		if got := rr.Header().Get(name); got != want {
			t.Errorf("header %s = %q, want %q", name, got, want)
		}
	}
	if !bytes.Equal(rr.Body.Bytes(), issuedResult().Archive.Bytes) {
		t.Error("body is not the archive")
	}

	wantCreds := services.Credentials{APIKey: "key-1", TenantID: "acme", UserID: "user-1", BearerToken: "token-1"}
	if issuer.creds != wantCreds {
		t.Errorf("credentials = %+v, want %+v", issuer.creds, wantCreds)
	}
	if issuer.profile.Name != "Jane Doe" || issuer.profile.CardSerial != "abc123" {
		t.Errorf("profile = %+v", issuer.profile)
	}
}

func TestHandleIssuePassErrors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		maxBytes       int64
		issuerErr      error
		wantStatus     int
		wantRetryAfter string
		wantIssued     bool
	}{
		{
			name:       "malformed JSON",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "body too large",
			body:       `{"name":"` + strings.Repeat("x", 2048) + `"}`,
			maxBytes:   1024,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "validation",
			body:       profileJSON,
			issuerErr:  pass.NewValidationError("name is required"),
			wantStatus: http.StatusBadRequest,
			wantIssued: true,
		},
		{
			name:       "auth",
			body:       profileJSON,
			issuerErr:  pass.NewAuthError("invalid API key"),
			wantStatus: http.StatusForbidden,
			wantIssued: true,
		},
		{
			name:           "rate limit",
			body:           profileJSON,
			issuerErr:      pass.NewRateLimitError("issuance quota exceeded", 90*time.Second),
			wantStatus:     http.StatusTooManyRequests,
			wantRetryAfter: "90",
			wantIssued:     true,
		},
		{
			name:       "signing",
			body:       profileJSON,
			issuerErr:  pass.NewSigningError("certificate expired"),
			wantStatus: http.StatusInternalServerError,
			wantIssued: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &stubIssuer{err: tt.issuerErr}

			var handler http.Handler = HandleIssuePass(issuer)
			if tt.maxBytes > 0 {
				handler = middleware.RequestSizeLimit(tt.maxBytes)(handler)
			}

			req := httptest.NewRequest(http.MethodPost, "/v1/passes", strings.NewReader(tt.body))
			// hide the length so the limit is enforced while reading
			req.ContentLength = -1

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if got := rr.Header().Get("Retry-After"); got != tt.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetryAfter)
			}
			if (issuer.calls > 0) != tt.wantIssued {
				t.Errorf("issuer called %d times", issuer.calls)
			}

			var body api.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Error == "" {
				t.Error("error body has no error message")
			}
		})
	}
}

func TestHandleReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]ReadinessCheck
		wantStatus int
		wantState  string
	}{
		{
			name: "all ready",
			checks: map[string]ReadinessCheck{
				"signer":  func(ctx context.Context) error { return nil },
				"records": func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantState:  "ready",
		},
		{
			name: "record store down",
			checks: map[string]ReadinessCheck{
				"signer":  func(ctx context.Context) error { return nil },
				"records": func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			HandleReadiness(tt.checks).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var body api.ReadinessResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantState)
			}
			if strings.Contains(rr.Body.String(), "connection refused") {
				t.Error("readiness response leaks the error")
			}
		})
	}
}

func TestHandleHealthAndVersion(t *testing.T) {
	rr := httptest.NewRecorder()
	HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("health: status %d body %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	HandleVersion("pass-server").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	var v api.VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode version: %v", err)
	}
	if v.Service != "pass-server" || v.Version == "" {
		t.Errorf("version response = %+v", v)
	}
}
