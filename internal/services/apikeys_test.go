package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cardpass/pass-issuer/internal/pass"
)

func testKeys(t *testing.T) *APIKeys {
	t.Helper()
	keys, err := ParseAPIKeys("acme:" + HashAPIKey("acme-key") + " | *:" + HashAPIKey("admin-key"))
	if err != nil {
		t.Fatalf("ParseAPIKeys failed: %v", err)
	}
	return keys
}

func TestParseAPIKeys(t *testing.T) {
	validHash := HashAPIKey("secret")

	tests := []struct {
		name    string
		entries string
		want    int
		wantErr string
	}{
		{name: "single", entries: "acme:" + validHash, want: 1},
		{name: "wildcard and blank entries", entries: "acme:" + validHash + "||*:" + validHash, want: 2},
		{name: "uppercase hash", entries: "acme:" + strings.ToUpper(validHash), want: 1},
		{name: "empty", entries: "", wantErr: "no API keys"},
		{name: "missing separator", entries: "acme" + validHash, wantErr: "tenantID:sha256hex"},
		{name: "short hash", entries: "acme:abcd", wantErr: "64 hex"},
		{name: "non hex hash", entries: "acme:" + strings.Repeat("z", 64), wantErr: "64 hex"},
		{name: "bad tenant", entries: "ac/me:" + validHash, wantErr: "invalid tenant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := ParseAPIKeys(tt.entries)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if keys.Len() != tt.want {
				t.Errorf("expected %d keys, got %d", tt.want, keys.Len())
			}
		})
	}
}

func TestParseAPIKeysDoesNotLeakKey(t *testing.T) {
	_, err := ParseAPIKeys("supersecretkeyvalue")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "supersecret") {
		t.Errorf("error message leaks the key: %v", err)
	}
}

func TestAPIKeysCheck(t *testing.T) {
	keys := testKeys(t)

	tests := []struct {
		name     string
		key      string
		tenantID string
		wantErr  bool
	}{
		{name: "tenant key", key: "acme-key", tenantID: "acme"},
		{name: "tenant key for other tenant", key: "acme-key", tenantID: "globex", wantErr: true},
		{name: "wildcard key", key: "admin-key", tenantID: "globex"},
		{name: "unknown key", key: "nope", tenantID: "acme", wantErr: true},
		{name: "missing key", key: "", tenantID: "acme", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := keys.Check(tt.key, tt.tenantID)
			if tt.wantErr {
				if pass.CodeOf(err) != pass.ErrCodeAuth {
					t.Fatalf("expected auth error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

type stubProvider struct {
	identity Identity
	err      error
}

func (s stubProvider) Identify(ctx context.Context, token string) (Identity, error) {
	return s.identity, s.err
}

func TestAuthenticate(t *testing.T) {
	keys := testKeys(t)
	ctx := context.Background()

	tokenIdentity := Identity{TenantID: "acme", UserID: "user-9", Method: "token"}

	tests := []struct {
		name     string
		provider IdentityProvider
		creds    Credentials
		want     Identity
		wantCode pass.ErrorCode
	}{
		{
			name:  "headers",
			creds: Credentials{APIKey: "acme-key", TenantID: "acme", UserID: "user-1"},
			want:  Identity{TenantID: "acme", UserID: "user-1", Method: "header"},
		},
		{
			name:     "missing tenant",
			creds:    Credentials{APIKey: "acme-key", UserID: "user-1"},
			wantCode: pass.ErrCodeAuth,
		},
		{
			name:     "missing user",
			creds:    Credentials{APIKey: "acme-key", TenantID: "acme"},
			wantCode: pass.ErrCodeAuth,
		},
		{
			name:     "key for another tenant",
			creds:    Credentials{APIKey: "acme-key", TenantID: "globex", UserID: "user-1"},
			wantCode: pass.ErrCodeAuth,
		},
		{
			name:     "bearer without provider",
			creds:    Credentials{APIKey: "acme-key", BearerToken: "token"},
			wantCode: pass.ErrCodeAuth,
		},
		{
			name:     "bearer token",
			provider: stubProvider{identity: tokenIdentity},
			creds:    Credentials{APIKey: "acme-key", BearerToken: "token"},
			want:     tokenIdentity,
		},
		{
			name:     "bearer token with matching tenant header",
			provider: stubProvider{identity: tokenIdentity},
			creds:    Credentials{APIKey: "acme-key", TenantID: "acme", BearerToken: "token"},
			want:     tokenIdentity,
		},
		{
			name:     "bearer token with mismatched tenant header",
			provider: stubProvider{identity: tokenIdentity},
			creds:    Credentials{APIKey: "admin-key", TenantID: "globex", BearerToken: "token"},
			wantCode: pass.ErrCodeAuth,
		},
		{
			name:     "rejected token",
			provider: stubProvider{err: pass.NewAuthError("bearer token is invalid")},
			creds:    Credentials{APIKey: "acme-key", BearerToken: "token"},
			wantCode: pass.ErrCodeAuth,
		},
		{
			name:     "valid token wrong key",
			provider: stubProvider{identity: tokenIdentity},
			creds:    Credentials{APIKey: "wrong", BearerToken: "token"},
			wantCode: pass.ErrCodeAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthenticator(keys, tt.provider)
			got, err := auth.Authenticate(ctx, tt.creds)

			if tt.wantCode != "" {
				var passErr *pass.PassError
				if !errors.As(err, &passErr) || passErr.Code() != tt.wantCode {
					t.Fatalf("expected %s error, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIdentityKey(t *testing.T) {
	a := Identity{TenantID: "acme", UserID: "u1"}
	b := Identity{TenantID: "globex", UserID: "u1"}
	if a.Key() == b.Key() {
		t.Error("same user in different tenants must have different keys")
	}
}
