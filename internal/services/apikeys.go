package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/pass"
)

// AnyTenant allows an API key to act for every tenant.
const AnyTenant = "*"

// apiKey is a configured API key. Only the SHA-256 hash of the key is held.
type apiKey struct {
	tenantID string
	hash     string
}

// APIKeys checks API keys against configured SHA-256 hashes.
type APIKeys struct {
	keys []apiKey
}

// ParseAPIKeys parses the API_KEYS setting: entries separated by "|", each "tenantID:sha256hex".
// The tenant "*" makes a key valid for all tenants.
func ParseAPIKeys(entries string) (*APIKeys, error) {
	k := &APIKeys{}

	for entry := range strings.SplitSeq(entries, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		tenant, hash, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("API key entry %q must be tenantID:sha256hex", redact(entry))
		}
		tenant = strings.TrimSpace(tenant)
		hash = strings.ToLower(strings.TrimSpace(hash))

		if tenant != AnyTenant && !validIdentifier(tenant) {
			return nil, fmt.Errorf("API key entry has an invalid tenant id %q", tenant)
		}
		if len(hash) != 64 || strings.Trim(hash, "0123456789abcdef") != "" {
			return nil, fmt.Errorf("API key hash for tenant %q must be 64 hex characters", tenant)
		}

		k.keys = append(k.keys, apiKey{tenantID: tenant, hash: hash})
	}

	if len(k.keys) == 0 {
		return nil, fmt.Errorf("no API keys configured")
	}
	return k, nil
}

// HashAPIKey returns the value to configure in API_KEYS for key.
func HashAPIKey(key string) string {
	return crypto.CalculateSHA256Hex([]byte(key))
}

// Len returns the number of configured keys.
func (k *APIKeys) Len() int { return len(k.keys) }

// Check verifies key and returns an auth error if it is unknown or not valid for tenantID.
// Every configured hash is compared so the time taken does not depend on which key matched.
func (k *APIKeys) Check(key, tenantID string) error {
	if key == "" {
		return pass.NewAuthError("API key is required")
	}

	matched := false
	allowed := false
	for _, candidate := range k.keys {
		if crypto.EqualSHA256([]byte(key), candidate.hash) {
			matched = true
			if candidate.tenantID == AnyTenant || candidate.tenantID == tenantID {
				allowed = true
			}
		}
	}

	if !matched {
		return pass.NewAuthError("invalid API key")
	}
	if !allowed {
		return pass.NewAuthError("API key is not valid for this tenant")
	}
	return nil
}

// redact hides everything after the first four characters.
func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// HeaderAuthenticator checks the API key and takes the identity from request headers,
// or from a bearer token when an identity provider is configured.
type HeaderAuthenticator struct {
	keys     *APIKeys
	provider IdentityProvider
}

// NewAuthenticator returns an Authenticator. provider may be nil, in which case bearer tokens are
// rejected and the identity comes from the tenant and user headers.
func NewAuthenticator(keys *APIKeys, provider IdentityProvider) *HeaderAuthenticator {
	return &HeaderAuthenticator{keys: keys, provider: provider}
}

// Authenticate checks the API key first, then resolves the identity.
//
// With a bearer token the identity comes from the token; a tenant header, if sent, must agree with it.
func (a *HeaderAuthenticator) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	if a == nil || a.keys == nil {
		return Identity{}, pass.NewInternalError("authenticator is not configured")
	}

	var identity Identity

	switch {
	case creds.BearerToken != "":
		if a.provider == nil {
			return Identity{}, pass.NewAuthError("bearer tokens are not accepted")
		}
		id, err := a.provider.Identify(ctx, creds.BearerToken)
		if err != nil {
			return Identity{}, err
		}
		if creds.TenantID != "" && creds.TenantID != id.TenantID {
			return Identity{}, pass.NewAuthError("tenant header does not match the token")
		}
		identity = id

	default:
		if !validIdentifier(creds.TenantID) {
			return Identity{}, pass.NewAuthError("tenant id is missing or invalid")
		}
		if !validIdentifier(creds.UserID) {
			return Identity{}, pass.NewAuthError("user id is missing or invalid")
		}
		identity = Identity{TenantID: creds.TenantID, UserID: creds.UserID, Method: "header"}
	}

	if err := a.keys.Check(creds.APIKey, identity.TenantID); err != nil {
		return Identity{}, err
	}
	return identity, nil
}
