package services

import (
	"context"
	"strings"
)

// Credentials are the caller credentials presented with an issuance request.
type Credentials struct {
	APIKey      string
	TenantID    string
	UserID      string
	BearerToken string
}

// Identity is an authenticated caller.
type Identity struct {
	TenantID string
	UserID   string

	// Method is how the identity was established: "header" or "token".
	Method string
}

// Key returns the rate limit key for the identity. It combines tenant and user so the same user id
// in two tenants gets two quotas.
func (i Identity) Key() string {
	return i.TenantID + "/" + i.UserID
}

// Authenticator verifies credentials and returns the caller identity.
// Failures are returned as pass auth errors.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (Identity, error)
}

// IdentityProvider resolves an identity from a bearer token.
type IdentityProvider interface {
	Identify(ctx context.Context, token string) (Identity, error)
}

// validIdentifier accepts the tenant and user ids the service stores: non-empty, at most 128
// characters, no whitespace or "/" (the rate limit key separator).
func validIdentifier(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	return !strings.ContainsAny(s, " \t\r\n/")
}
